package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// fileConfig represents the JSON config file structure.
type fileConfig struct {
	URL       *string `json:"url,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	Name      *string `json:"name,omitempty"`
	Row       *string `json:"row,omitempty"`
	Column    *string `json:"column,omitempty"`
	Value     *string `json:"value,omitempty"`
	Headless  *bool   `json:"headless,omitempty"`
	Attach    *bool   `json:"attach,omitempty"`
	Host      *string `json:"host,omitempty"`
	Port      *int    `json:"port,omitempty"`
	Chrome    *string `json:"chrome,omitempty"`
	Timeout   *string `json:"timeout,omitempty"` // duration string, e.g. "30s"
	Output    *string `json:"output,omitempty"`
	Strict    *bool   `json:"strict,omitempty"`
	RequireUp *bool   `json:"requireUploadConfirmation,omitempty"`
}

// loadConfigFile loads a .csvtriprc file and applies it to cfg.
// It checks CWD first, then home directory.
func loadConfigFile(cfg *Config) {
	paths := []string{
		filepath.Join(".", ".csvtriprc"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".csvtriprc"))
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			continue // silently skip malformed config
		}
		applyFileConfig(cfg, &fc)
		return // use first file found
	}
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	t := &cfg.Trip
	if fc.URL != nil {
		t.BaseURL = *fc.URL
	}
	if fc.Username != nil {
		t.Credentials.Username = *fc.Username
	}
	if fc.Password != nil {
		t.Credentials.Password = *fc.Password
	}
	if fc.Name != nil {
		t.Credentials.DisplayName = *fc.Name
	}
	if fc.Row != nil {
		t.Mutation.RowKey = *fc.Row
	}
	if fc.Column != nil {
		t.Mutation.Column = *fc.Column
	}
	if fc.Value != nil {
		t.Mutation.Value = *fc.Value
	}
	if fc.Headless != nil {
		t.Headless = *fc.Headless
	}
	if fc.Attach != nil {
		t.Attach = *fc.Attach
	}
	if fc.Host != nil {
		t.Host = *fc.Host
	}
	if fc.Port != nil {
		t.Port = *fc.Port
	}
	if fc.Chrome != nil {
		t.ChromePath = *fc.Chrome
	}
	if fc.Timeout != nil {
		if d, err := time.ParseDuration(*fc.Timeout); err == nil {
			t.StepTimeout = d
		}
	}
	if fc.RequireUp != nil {
		t.RequireUploadConfirmation = *fc.RequireUp
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Strict != nil {
		cfg.Strict = *fc.Strict
	}
}

// applyDotEnv applies CSVTRIP_* entries of cfg.EnvFile. A missing file is
// not an error; a malformed one is.
func applyDotEnv(cfg *Config, explicit map[string]bool) error {
	if cfg.EnvFile == "" {
		return nil
	}
	values, err := godotenv.Read(cfg.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.EnvFile, err)
	}
	applyEnvVars(cfg, func(key string) string { return values[key] }, explicit)
	return nil
}

// applyEnvVars applies CSVTRIP_* variables from getenv to cfg, but only for
// fields not already set by explicit CLI flags.
func applyEnvVars(cfg *Config, getenv func(string) string, explicit map[string]bool) {
	t := &cfg.Trip
	str := func(flagName, key string, dst *string) {
		if explicit[flagName] {
			return
		}
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(flagName, key string, dst *bool) {
		if explicit[flagName] {
			return
		}
		if v := getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("url", "CSVTRIP_URL", &t.BaseURL)
	str("username", "CSVTRIP_USERNAME", &t.Credentials.Username)
	str("password", "CSVTRIP_PASSWORD", &t.Credentials.Password)
	str("name", "CSVTRIP_NAME", &t.Credentials.DisplayName)
	str("row", "CSVTRIP_ROW", &t.Mutation.RowKey)
	str("column", "CSVTRIP_COLUMN", &t.Mutation.Column)
	str("value", "CSVTRIP_VALUE", &t.Mutation.Value)
	str("host", "CSVTRIP_HOST", &t.Host)
	str("chrome", "CSVTRIP_CHROME", &t.ChromePath)
	str("output", "CSVTRIP_OUTPUT", &cfg.Output)
	boolean("headless", "CSVTRIP_HEADLESS", &t.Headless)
	boolean("attach", "CSVTRIP_ATTACH", &t.Attach)

	if !explicit["port"] {
		if v := getenv("CSVTRIP_PORT"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				t.Port = i
			}
		}
	}
	if !explicit["timeout"] {
		if v := getenv("CSVTRIP_TIMEOUT"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				t.StepTimeout = d
			}
		}
	}
}
