package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/clutchmetrics/internal/model"
	"github.com/pable/clutchmetrics/internal/report"
	"github.com/pable/clutchmetrics/internal/storage"
	"github.com/pable/clutchmetrics/internal/weights"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	cGreeting.Println("clutchmetrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("clutchmetrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellErr(printRuns(db))
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <run-prefix> [--phase <slug>] [--player <id>]")
				continue
			}
			shellErr(shellShow(db, args[0], args[1:]))
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <id> [--all | --run <prefix>]")
				continue
			}
			shellErr(shellPlayer(db, args))
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			shellErr(printQuery(db, strings.TrimSpace(strings.TrimPrefix(line, "sql"))))
		case "weights":
			report.PrintWeightTable(os.Stdout, weights.New(weights.WithOverrides(cfg.Weights)).Entries())
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return nil
}

func shellErr(err error) {
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored runs"},
		{"show <run-prefix>", "show a run's leaderboards and efficiency"},
		{"show <run-prefix> --phase <slug>", "same, one season phase only"},
		{"show <run-prefix> --player <id>", "same, highlighting one player"},
		{"player <id> [--run <prefix>]", "one player's rows in a run (default latest)"},
		{"player <id> --all", "one player's rows across every run"},
		{"sql <query>", "run a raw SQL query"},
		{"weights", "print the eWPA weight table"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

// flagValue returns the token following name in args, or "".
func flagValue(args []string, name string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func shellShow(db *storage.DB, prefix string, args []string) error {
	opts := showOptions{top: cfg.LeaderboardLimit, anyPhase: true}
	if v := flagValue(args, "--player"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid player ID %q: %w", v, err)
		}
		opts.player = id
	}
	if v := flagValue(args, "--phase"); v != "" {
		opts.anyPhase = false
		opts.phase = model.ParsePhase(v)
	}

	run, err := db.GetRunByPrefix(prefix)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run found with prefix %q", prefix)
	}
	return showRun(db, run, opts)
}

func shellPlayer(db *storage.DB, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid player ID %q: %w", args[0], err)
	}
	if hasFlag(args[1:], "--all") {
		return printPlayerHistory(db, id)
	}
	return printPlayerRun(db, id, flagValue(args[1:], "--run"))
}
