package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "classify":
		return runClassify(args[1:])
	case "aggregate":
		return runAggregate(args[1:])
	case "run", "run-once":
		return runPipeline(args[1:])
	case "top":
		return runTop(args[1:])
	case "trends":
		return runTrends(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "nichescore CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  nichescore <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest     Insert collector records into raw post storage")
	fmt.Fprintln(os.Stderr, "  classify   Classify pending posts through the oracle")
	fmt.Fprintln(os.Stderr, "  aggregate  Fold one day's classifications into trend snapshots")
	fmt.Fprintln(os.Stderr, "  run        Run classify + aggregate in sequence")
	fmt.Fprintln(os.Stderr, "  run-once   Alias for run")
	fmt.Fprintln(os.Stderr, "  top        Show ranked problem categories with NicheScores")
	fmt.Fprintln(os.Stderr, "  trends     Show daily trend snapshots")
	fmt.Fprintln(os.Stderr, "  stats      Show collection and classification counters")
	fmt.Fprintln(os.Stderr, "  serve      Start the Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"nichescore <command> -h\" for command-specific flags.")
}
