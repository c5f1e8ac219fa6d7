// =============================================================================
// main.go - news-harvester CLI entrypoint
// =============================================================================
//
// Scrapes the configured news sources and the CNMV short-position register,
// composes one HTML report and emails it.
//
// Flags:
//
//	-config    path to the YAML config (default: config.yaml)
//	-keywords  override the configured keyword filter (comma or | separated)
//	-tz        override the configured timezone
//	-hours     override the recency window in hours
//	-dryRun    print the report HTML to stdout instead of sending email
//
// Environment:
//
//	EMAIL_FROM / EMAIL_PASSWORD / EMAIL_TO  SMTP credentials and fallback
//	                                        recipients (EMAIL_PASSWORD must
//	                                        be a Gmail App Password)
//	KEYWORD                                 keyword override, | separated
//	TZNAME                                  timezone override
//	DEBUG=true                              debug logging
//
// A run that finds nothing to report exits 0 without sending anything.
//
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"news-harvester/internal/harvester"
	"news-harvester/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Not an error: environment variables may be set directly.
		fmt.Fprintf(os.Stderr, ".env file not loaded: %v\n", err)
	}
	logger.Init()

	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	keywords := flag.String("keywords", "", "override keyword filter (comma or | separated)")
	tzName := flag.String("tz", "", "override configured timezone")
	hours := flag.Int("hours", 0, "override recency window in hours (0=use config)")
	dryRun := flag.Bool("dryRun", false, "print report HTML to stdout instead of sending email")
	flag.Parse()

	cfg, err := harvester.LoadConfig(*configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("loading config")
	}
	applyOverrides(cfg, *keywords, *tzName, *hours)

	h, err := harvester.New(*cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("initializing harvester")
	}

	result, err := h.Run(context.Background())
	if err != nil {
		logger.Log.WithError(err).Fatal("harvest run failed")
	}

	if *dryRun {
		fmt.Println(result.HTML)
		return
	}

	if !result.Deliver {
		logger.Log.Info("nothing to report in the current window, no email sent")
		return
	}

	sender, err := harvester.NewEmailSender(
		os.Getenv("EMAIL_FROM"),
		os.Getenv("EMAIL_PASSWORD"),
		recipients(cfg),
	)
	if err != nil {
		logger.Log.WithError(err).Fatal("email configuration")
	}
	if err := sender.Send(result.Subject, result.HTML); err != nil {
		logger.Log.WithError(err).Fatal("sending report")
	}
	logger.Log.Infof("report sent: %d articles, %d issuer blocks", len(result.Articles), len(result.Issuers))
}

// applyOverrides layers CLI flags and legacy environment variables over the
// file configuration. Flags win over env vars, env vars over the file.
func applyOverrides(cfg *harvester.Config, keywords, tzName string, hours int) {
	if keywords == "" {
		keywords = os.Getenv("KEYWORD")
	}
	if keywords != "" {
		cfg.Keywords = splitKeywords(keywords)
	}

	if tzName == "" {
		tzName = os.Getenv("TZNAME")
	}
	if tzName != "" {
		cfg.Timezone = tzName
	}

	if hours > 0 {
		cfg.HoursRecent = hours
	}
}

func splitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// recipients prefers the configured list, falling back to EMAIL_TO.
func recipients(cfg *harvester.Config) []string {
	if len(cfg.ToEmails) > 0 {
		return cfg.ToEmails
	}
	var out []string
	for _, addr := range strings.Split(os.Getenv("EMAIL_TO"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
