// Package config holds the engine configuration. Settings live either in
// the ledger itself as custom directives,
//
//	2023-01-01 custom "beanbot-config" "dedup-window-days" 3
//
// or in a YAML file; both forms populate the same explicit Config struct
// that callers pass around. There is no shared global instance.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/beanbot-go/beanbot/ast"
)

// CustomType is the custom directive type string carrying configuration.
const CustomType = "beanbot-config"

// Config collects the settings used across the import pipeline.
type Config struct {
	// MainFile is the ledger file that transactions are committed to.
	MainFile string `yaml:"main-file"`

	// FallbackFile receives transactions that no other rule routes.
	FallbackFile string `yaml:"fallback-transaction-file"`

	// SourceAccountRegex matches the posting account a transaction was
	// recorded against (the bank or card account of the import source).
	SourceAccountRegex string `yaml:"regex-source-account"`

	// CategoryAccountRegex matches the accounts used for categorization.
	CategoryAccountRegex string `yaml:"regex-category-account"`

	// InternalAccountRegex matches accounts considered internal when
	// detecting transfers between one's own accounts.
	InternalAccountRegex string `yaml:"regex-internal-account"`

	// DedupWindowDays is the number of days before and after an imported
	// entry's date to search for duplicates.
	DedupWindowDays int `yaml:"dedup-window-days"`
}

// Default returns the configuration used when a setting is not given.
func Default() Config {
	return Config{
		SourceAccountRegex:   `^(Assets|Liabilities)`,
		CategoryAccountRegex: `^(Income|Expenses)`,
		InternalAccountRegex: `^(Liabilities:Credit|Assets:Checking)`,
		DedupWindowDays:      3,
	}
}

// UnknownKeyError reports a configuration directive with an unrecognized
// name.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown configuration key %q", e.Key)
}

// FromYAML parses a YAML document over the defaults.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadYAML reads a YAML configuration file over the defaults.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return FromYAML(data)
}

// FromFile collects "beanbot-config" custom directives from a parsed
// ledger over the defaults. Each directive carries a name and a value:
//
//	2023-01-01 custom "beanbot-config" "main-file" "main.bean"
func FromFile(file *ast.File) (Config, error) {
	return FromDirectives(file.Directives)
}

// FromDirectives collects "beanbot-config" custom directives from a
// directive list over the defaults.
func FromDirectives(directives ast.Directives) (Config, error) {
	cfg := Default()
	for _, d := range directives {
		custom, ok := d.(*ast.Custom)
		if !ok || custom.Type != CustomType {
			continue
		}
		if err := cfg.apply(custom); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(custom *ast.Custom) error {
	if len(custom.Values) != 2 {
		return fmt.Errorf("configuration directive at %s:%d needs a name and a value",
			custom.Meta().SourceFile(), custom.Meta().SourceLine())
	}

	name := custom.Values[0].Text()
	value := custom.Values[1].Text()

	switch name {
	case "main-file":
		c.MainFile = value
	case "fallback-transaction-file":
		c.FallbackFile = value
	case "regex-source-account":
		c.SourceAccountRegex = value
	case "regex-category-account":
		c.CategoryAccountRegex = value
	case "regex-internal-account":
		c.InternalAccountRegex = value
	case "dedup-window-days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid dedup-window-days %q: %w", value, err)
		}
		c.DedupWindowDays = n
	default:
		return &UnknownKeyError{Key: name}
	}
	return nil
}

// Validate checks that the regular expressions compile and the window is
// not negative.
func (c Config) Validate() error {
	for name, expr := range map[string]string{
		"regex-source-account":   c.SourceAccountRegex,
		"regex-category-account": c.CategoryAccountRegex,
		"regex-internal-account": c.InternalAccountRegex,
	} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.DedupWindowDays < 0 {
		return fmt.Errorf("dedup-window-days must not be negative, got %d", c.DedupWindowDays)
	}
	return nil
}
