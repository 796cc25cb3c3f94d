package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tomyan/csvtrip/internal/roundtrip"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
	ExitUnverified = 4
)

// Config holds the CLI configuration.
type Config struct {
	Trip    roundtrip.Config
	Output  string // text, json
	Strict  bool   // map failed or unverified runs to non-zero exit codes
	EnvFile string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns the default configuration with built-in defaults.
// The config file, .env file, environment and flags are applied on top.
func DefaultConfig() *Config {
	return &Config{
		Trip:    roundtrip.DefaultConfig(),
		Output:  "text",
		EnvFile: ".env",
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	url             string
	username        string
	password        string
	name            string
	row             string
	column          string
	value           string
	headless        bool
	attach          bool
	host            string
	port            int
	chromePath      string
	timeout         time.Duration
	downloadTimeout time.Duration
	uploadTimeout   time.Duration
	requireUpload   bool
	output          string
	strict          bool
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	trip := cfg.Trip

	fs := flag.NewFlagSet("csvtrip", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.StringVar(&fv.url, "url", trip.BaseURL, "CSV Manager base URL (env: CSVTRIP_URL)")
	fs.StringVar(&fv.username, "username", trip.Credentials.Username, "Login name (env: CSVTRIP_USERNAME)")
	fs.StringVar(&fv.password, "password", trip.Credentials.Password, "Password (env: CSVTRIP_PASSWORD)")
	fs.StringVar(&fv.name, "name", trip.Credentials.DisplayName, "Display name used when registering (env: CSVTRIP_NAME)")
	fs.StringVar(&fv.row, "row", trip.Mutation.RowKey, "First-column value of the row to change (env: CSVTRIP_ROW)")
	fs.StringVar(&fv.column, "column", trip.Mutation.Column, "Header name of the column to change (env: CSVTRIP_COLUMN)")
	fs.StringVar(&fv.value, "value", trip.Mutation.Value, "New cell value (env: CSVTRIP_VALUE)")
	fs.BoolVar(&fv.headless, "headless", trip.Headless, "Run Chrome without a window (env: CSVTRIP_HEADLESS)")
	fs.BoolVar(&fv.attach, "attach", trip.Attach, "Use the Chrome already listening on --host/--port (env: CSVTRIP_ATTACH)")
	fs.StringVar(&fv.host, "host", trip.Host, "Chrome debug host for --attach (env: CSVTRIP_HOST)")
	fs.IntVar(&fv.port, "port", trip.Port, "Chrome debug port for --attach (env: CSVTRIP_PORT)")
	fs.StringVar(&fv.chromePath, "chrome", trip.ChromePath, "Chrome binary (env: CSVTRIP_CHROME)")
	fs.DurationVar(&fv.timeout, "timeout", trip.StepTimeout, "Wait bound for page loads and elements (env: CSVTRIP_TIMEOUT)")
	fs.DurationVar(&fv.downloadTimeout, "download-timeout", trip.DownloadTimeout, "Wait bound for the CSV download")
	fs.DurationVar(&fv.uploadTimeout, "upload-timeout", trip.UploadTimeout, "Wait bound for the import confirmation")
	fs.BoolVar(&fv.requireUpload, "require-upload-confirmation", trip.RequireUploadConfirmation, "Fail the run when the import toast never appears")
	fs.StringVar(&fv.output, "output", cfg.Output, "Summary format: text, json (env: CSVTRIP_OUTPUT)")
	fs.BoolVar(&fv.strict, "strict", cfg.Strict, "Exit non-zero when the run fails or the change is not verified")
	envFile := fs.String("env-file", cfg.EnvFile, "Dotenv file to read")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	// Track which flags were explicitly set on the command line
	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < .csvtriprc < .env < env vars < CLI flags
	loadConfigFile(cfg)

	cfg.EnvFile = *envFile
	if err := applyDotEnv(cfg, explicitFlags); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	applyEnvVars(cfg, os.Getenv, explicitFlags)

	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	if cfg.Output != "text" && cfg.Output != "json" {
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}

	remaining := fs.Args()
	name := "run"
	if len(remaining) > 0 {
		name, remaining = remaining[0], remaining[1:]
	}

	info, ok := commands[name]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", name)
		return ExitError
	}
	return info.Run(cfg, remaining)
}

// reapplyExplicitFlags re-applies flag values that were explicitly set
// on the command line, since file and environment loading may have
// overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	t := &cfg.Trip
	if explicit["url"] {
		t.BaseURL = fv.url
	}
	if explicit["username"] {
		t.Credentials.Username = fv.username
	}
	if explicit["password"] {
		t.Credentials.Password = fv.password
	}
	if explicit["name"] {
		t.Credentials.DisplayName = fv.name
	}
	if explicit["row"] {
		t.Mutation.RowKey = fv.row
	}
	if explicit["column"] {
		t.Mutation.Column = fv.column
	}
	if explicit["value"] {
		t.Mutation.Value = fv.value
	}
	if explicit["headless"] {
		t.Headless = fv.headless
	}
	if explicit["attach"] {
		t.Attach = fv.attach
	}
	if explicit["host"] {
		t.Host = fv.host
	}
	if explicit["port"] {
		t.Port = fv.port
	}
	if explicit["chrome"] {
		t.ChromePath = fv.chromePath
	}
	if explicit["timeout"] {
		t.StepTimeout = fv.timeout
	}
	if explicit["download-timeout"] {
		t.DownloadTimeout = fv.downloadTimeout
	}
	if explicit["upload-timeout"] {
		t.UploadTimeout = fv.uploadTimeout
	}
	if explicit["require-upload-confirmation"] {
		t.RequireUploadConfirmation = fv.requireUpload
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["strict"] {
		cfg.Strict = fv.strict
	}
}
