package scoring

// Subreddit tier names used as QualityTable keys for reddit records.
const (
	TierNiche   = "niche_subreddit"
	TierIdea    = "idea_subreddit"
	TierGeneral = "general_subreddit"
)

var (
	ideaSubreddits = map[string]struct{}{
		"AppIdeas":         {},
		"SomebodyMakeThis": {},
	}
	generalSubreddits = map[string]struct{}{
		"mildlyinfuriating": {},
		"DoesAnybodyElse":   {},
		"LifeProTips":       {},
	}
)

// SubredditTier classifies a subreddit name into a trust tier. Subreddits not
// on the idea or general lists count as niche, the highest-trust tier, since
// the collectors only follow curated niche communities beyond those lists.
func SubredditTier(subreddit string) string {
	if _, ok := ideaSubreddits[subreddit]; ok {
		return TierIdea
	}
	if _, ok := generalSubreddits[subreddit]; ok {
		return TierGeneral
	}
	return TierNiche
}
