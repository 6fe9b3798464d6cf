package scoring

import "testing"

func TestSubredditTier(t *testing.T) {
	t.Parallel()

	cases := []struct {
		subreddit string
		want      string
	}{
		{"AppIdeas", TierIdea},
		{"SomebodyMakeThis", TierIdea},
		{"mildlyinfuriating", TierGeneral},
		{"LifeProTips", TierGeneral},
		{"PropertyManagement", TierNiche},
		{"gardening", TierNiche},
		{"", TierNiche},
	}

	for _, tc := range cases {
		if got := SubredditTier(tc.subreddit); got != tc.want {
			t.Errorf("SubredditTier(%q) = %q, want %q", tc.subreddit, got, tc.want)
		}
	}
}
