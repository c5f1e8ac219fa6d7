// =============================================================================
// config.go - YAML configuration
// =============================================================================
//
// The configuration is loaded once at startup into an immutable Config value
// that every component receives explicitly. No package-level state.
//
// =============================================================================
package harvester

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrNoSources        = errors.New("at least one source is required")
	ErrSourceMissingURL = errors.New("source url is required")
	ErrInvalidTimezone  = errors.New("timezone is not a valid IANA zone name")
	ErrInvalidWindow    = errors.New("hours_recent must be at least 1")
	ErrInvalidWorkers   = errors.New("concurrency must be at least 1")
)

const (
	defaultMaxToFetch  = 400
	defaultHoursRecent = 24
	defaultTimezone    = "Europe/Madrid"
	defaultConcurrency = 6
	defaultLang        = "es"
)

// Source describes one configured news source.
type Source struct {
	Name string `yaml:"name"`
	// URL is the source homepage. It doubles as the fallback listing page
	// when a dedicated listing yields nothing.
	URL string `yaml:"url"`
	// Listing is the page to resolve first (an RSS/Atom feed or an HTML
	// index). Defaults to URL.
	Listing string `yaml:"listing"`
	// DomainPrefix filters discovered links; defaults to URL.
	DomainPrefix string `yaml:"domain_prefix"`
	MaxToFetch   int    `yaml:"max_to_fetch"`
}

// Config is the full harvester configuration.
type Config struct {
	Sources     []Source `yaml:"sources"`
	Keywords    []string `yaml:"keywords"`
	HoursRecent int      `yaml:"hours_recent"`
	Timezone    string   `yaml:"timezone"`
	ReportTitle string   `yaml:"report_title"`

	// NIFs are the issuer identifiers queried against the CNMV short
	// position register. The YAML value may be a list or a single string
	// with comma/space/semicolon separators.
	NIFs NIFList `yaml:"cnmv_nifs"`
	Lang string  `yaml:"cnmv_lang"`
	// ShortPositionsURL overrides the register endpoint; defaults to the
	// public CNMV URL.
	ShortPositionsURL string `yaml:"cnmv_url"`

	ToEmails    []string `yaml:"to_emails"`
	Concurrency int      `yaml:"concurrency"`
}

// NIFList accepts either a YAML sequence or a separator-delimited scalar,
// matching the two shapes seen in real config files.
type NIFList []string

var nifSeparators = regexp.MustCompile(`[,\s;]+`)

func (n *NIFList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*n = splitNIFs(raw)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		out := make(NIFList, 0, len(raw))
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*n = out
		return nil
	default:
		return fmt.Errorf("cnmv_nifs: unsupported YAML node kind %d", value.Kind)
	}
}

func splitNIFs(raw string) NIFList {
	out := NIFList{}
	for _, p := range nifSeparators.Split(raw, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig reads and validates a YAML config file, filling defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HoursRecent == 0 {
		c.HoursRecent = defaultHoursRecent
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Lang == "" {
		c.Lang = defaultLang
	}
	if c.ReportTitle == "" {
		c.ReportTitle = "Resumen de noticias"
	}

	kept := c.Sources[:0]
	for _, s := range c.Sources {
		if s.URL == "" {
			continue
		}
		if s.Name == "" {
			s.Name = "SIN_NOMBRE"
		}
		if s.Listing == "" {
			s.Listing = s.URL
		}
		if s.DomainPrefix == "" {
			s.DomainPrefix = s.URL
		}
		if s.MaxToFetch <= 0 {
			s.MaxToFetch = defaultMaxToFetch
		}
		kept = append(kept, s)
	}
	c.Sources = kept
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for _, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("%w (source %q)", ErrSourceMissingURL, s.Name)
		}
	}
	if c.HoursRecent < 1 {
		return ErrInvalidWindow
	}
	if c.Concurrency < 1 {
		return ErrInvalidWorkers
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Timezone)
	}
	return nil
}

// Location resolves the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RecencyWindow returns the recency filter window as a duration.
func (c *Config) RecencyWindow() time.Duration {
	return time.Duration(c.HoursRecent) * time.Hour
}
