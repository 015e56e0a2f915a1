package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/circuitscribe/internal/config"
	"golang.org/x/term"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "-v", "--version":
		fmt.Printf("scribe %s\n", Version)
		return
	case "verify":
		err = cmdVerify(args)
	case "challenges":
		err = cmdChallenges(args)
	case "lessons":
		err = cmdLessons(args)
	default:
		err = runWithConfig(cmd, args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runWithConfig dispatches commands that need the daemon or the store
func runWithConfig(cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch cmd {
	case "start":
		return cmdStart(cfg)
	case "stop":
		return cmdStop(cfg)
	case "status":
		return cmdStatus(cfg)
	case "logs":
		return cmdLogs(cfg)
	case "login":
		return cmdLogin(cfg)
	case "progress":
		return cmdProgress(cfg)
	case "submit":
		return cmdSubmit(cfg, args)
	case "export":
		return cmdExport(cfg, args)
	case "token":
		return cmdToken(cfg, args)
	case "mcp":
		return cmdMCP(cfg)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Println(`Circuit Scribe - Arduino lessons, challenges and progress

Usage:
  scribe <command> [arguments]

Offline Commands:
  verify <challenge> <file.ino>   Check a sketch against a challenge
  challenges [difficulty]         List challenges
  lessons [day]                   Show the lesson list or one lesson day

Daemon Commands:
  start           Start the scribed daemon
  stop            Stop the scribed daemon
  status          Show daemon status
  logs            View daemon logs

Progress Commands (via daemon):
  login                       Record today's login and show progress
  progress                    Show XP, level and completions
  submit <challenge> <file>   Verify and record a passing sketch
  export <file.xlsx|.pdf>     Download a progress report

Integration Commands:
  mcp             Start MCP server on stdio
  token <learner> Issue a bearer token (jwt auth mode)

Other:
  help            Show this help message
  version         Show version information

Examples:
  scribe verify blink-led blink.ino
  scribe lessons 2
  scribe start && scribe login
  scribe export progress.xlsx
  scribe export certificate.pdf`)
}

// bar renders a progress bar on a terminal and nothing when output is piped
func bar(value float64) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ""
	}
	return renderProgressBar(value, 20)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
