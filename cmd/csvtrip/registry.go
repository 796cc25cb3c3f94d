package main

import (
	"flag"
	"fmt"
	"sort"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name  string
	Desc  string
	Usage string
	Run   func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands map[string]CommandInfo

func init() {
	commands = map[string]CommandInfo{
		"run":    {Name: "run", Desc: "Log in, download, edit, upload and verify (default)", Usage: "csvtrip [flags] run", Run: cmdRun},
		"edit":   {Name: "edit", Desc: "Apply the row/column/value edit to a local CSV file", Usage: "csvtrip [flags] edit [file|-]", Run: cmdEdit},
		"scrape": {Name: "scrape", Desc: "Log in and print the on-screen table as CSV", Usage: "csvtrip [flags] scrape", Run: cmdScrape},
		"serve":  {Name: "serve", Desc: "Serve the demo CSV Manager app", Usage: "csvtrip serve [--addr :3000]", Run: cmdServe},
		"help":   {Name: "help", Desc: "Show help for a command", Usage: "csvtrip help [command]", Run: cmdHelp},
	}
}

func usageError(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// sortedCommandNames returns all command names sorted alphabetically.
func sortedCommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// printUsage prints the usage message with the command list.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: csvtrip [flags] [command]")
	fmt.Fprintln(cfg.Stderr)
	fmt.Fprintln(cfg.Stderr, "commands:")
	for _, name := range sortedCommandNames() {
		fmt.Fprintf(cfg.Stderr, "  %-8s %s\n", name, commands[name].Desc)
	}
	fmt.Fprintln(cfg.Stderr)
	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}

func cmdHelp(cfg *Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(cfg.Stdout, "csvtrip - CSV Manager round trip through Chrome")
		fmt.Fprintln(cfg.Stdout)
		for _, name := range sortedCommandNames() {
			fmt.Fprintf(cfg.Stdout, "  %-8s %s\n", name, commands[name].Desc)
		}
		fmt.Fprintln(cfg.Stdout)
		fmt.Fprintln(cfg.Stdout, "Run 'csvtrip help <command>' for usage, 'csvtrip -h' for flags.")
		return ExitSuccess
	}

	info, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", args[0])
		return ExitError
	}
	fmt.Fprintf(cfg.Stdout, "usage: %s\n\n%s\n", info.Usage, info.Desc)
	return ExitSuccess
}
