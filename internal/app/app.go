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
	case "serve":
		return runServe(args[1:])
	case "run-once":
		return runOnce(args[1:])
	case "scrape":
		return runScrape(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "health":
		return runHealth(args[1:])
	case "stats":
		return runStats(args[1:])
	case "hash-token":
		return runHashToken(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve       Run the moderation bot, the cycle scheduler and the admin API")
	fmt.Fprintln(os.Stderr, "  run-once    Run one scrape/ingest/transform/queue cycle")
	fmt.Fprintln(os.Stderr, "  scrape      Run the configured connectors and print items as JSON")
	fmt.Fprintln(os.Stderr, "  validate    Validate the app config and scraped item JSON files")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  stats       Print pipeline table counts")
	fmt.Fprintln(os.Stderr, "  hash-token  Print a bcrypt hash for ADMIN_TOKEN_HASH")
	fmt.Fprintln(os.Stderr, "  daemon      Manage the systemd unit for serve")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsdesk <command> -h\" for command-specific flags.")
}
