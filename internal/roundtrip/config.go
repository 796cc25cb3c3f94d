package roundtrip

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomyan/csvtrip/internal/csvdoc"
)

// Credentials identify the account the run logs in with. DisplayName is only
// used when the account has to be registered.
type Credentials struct {
	Username    string
	Password    string
	DisplayName string
}

// Selectors locate the controls of the CSV Manager UI. Fields ending in Text
// are matched against element text, the rest are CSS selectors.
type Selectors struct {
	LoginTab         string
	RegisterTab      string
	LoginUsername    string
	LoginPassword    string
	RegisterUsername string
	RegisterPassword string
	RegisterName     string
	TabPanel         string // scope for the submit buttons
	LoginButtonText  string
	RegisterText     string
	WelcomeText      string
	DownloadText     string
	FileInput        string
	ImportToastText  string
	TableRows        string
}

// DefaultSelectors matches the CSV Manager application.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginTab:         "#radix-_r_0_-trigger-login",
		RegisterTab:      "#radix-_r_0_-trigger-register",
		LoginUsername:    "#login-username",
		LoginPassword:    "#login-password",
		RegisterUsername: "#register-username",
		RegisterPassword: "#register-password",
		RegisterName:     "#register-name",
		TabPanel:         "div[role='tabpanel']",
		LoginButtonText:  "ログイン",
		RegisterText:     "アカウント作成",
		WelcomeText:      "ようこそ",
		DownloadText:     "CSVダウンロード",
		FileInput:        "input[type='file']",
		ImportToastText:  "インポートしました",
		TableRows:        "table tbody tr",
	}
}

// File names inside the download directory.
const (
	DownloadName = "data.csv"
	UploadName   = "upload_data.csv"
)

// Config is everything one run needs. It is passed explicitly to every step.
type Config struct {
	BaseURL     string
	Credentials Credentials
	Mutation    csvdoc.Mutation
	Selectors   Selectors

	// Browser
	ChromePath   string
	Headless     bool
	Attach       bool // connect to Host:Port instead of launching
	Host         string
	Port         int
	WindowWidth  int
	WindowHeight int

	// DownloadDir is created fresh per run when empty.
	DownloadDir string

	StepTimeout     time.Duration // element and navigation waits
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration

	// RequireUploadConfirmation turns a missing import toast into a failure.
	RequireUploadConfirmation bool
}

// DefaultConfig returns the configuration of the demo run: the demo account,
// TestProduct2's Quantity set to 40, a visible 1920x1080 window.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:3000",
		Credentials: Credentials{
			Username:    "demouser",
			Password:    "demo123456",
			DisplayName: "デモユーザー",
		},
		Mutation: csvdoc.Mutation{
			RowKey: "TestProduct2",
			Column: "Quantity",
			Value:  "40",
		},
		Selectors:       DefaultSelectors(),
		Host:            "localhost",
		Port:            9222,
		WindowWidth:     1920,
		WindowHeight:    1080,
		StepTimeout:     10 * time.Second,
		DownloadTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.Credentials.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("password is required")
	}
	if c.Mutation.RowKey == "" || c.Mutation.Column == "" {
		return fmt.Errorf("mutation needs a row key and a column")
	}
	if c.StepTimeout <= 0 || c.DownloadTimeout <= 0 || c.UploadTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// URL joins a path onto BaseURL.
func (c Config) URL(path string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + path
}
