// =============================================================================
// Lambda: harvest
// =============================================================================
//
// Scheduled Lambda wrapper around one harvester run. Scrapes the configured
// sources and the short-position register, then emails the composed report.
//
// Environment:
//   - CONFIG_PATH:      path to the bundled YAML config (default: config.yaml)
//   - EMAIL_FROM:       sender address (required unless DRY_RUN)
//   - EMAIL_PASSWORD:   Gmail App Password (required unless DRY_RUN)
//   - EMAIL_TO:         fallback recipients, comma separated
//   - KEYWORD:          keyword filter override, | separated
//   - HOURS_RECENT:     recency window override in hours
//   - DRY_RUN:          when set, skip delivery and report counts only
//
// =============================================================================
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"news-harvester/internal/harvester"
	"news-harvester/internal/logger"
)

// Response is the Lambda invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Articles   int    `json:"articles"`
	Issuers    int    `json:"issuers"`
	Delivered  bool   `json:"delivered"`
}

// Handler runs one harvest and delivers the report.
func Handler(ctx context.Context, _ any) (Response, error) {
	logger.Init()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := harvester.LoadConfig(configPath)
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}
	applyEnvOverrides(cfg)

	h, err := harvester.New(*cfg)
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}

	result, err := h.Run(ctx)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}

	resp := Response{
		StatusCode: 200,
		Articles:   len(result.Articles),
		Issuers:    len(result.Issuers),
	}

	if !result.Deliver || os.Getenv("DRY_RUN") != "" {
		resp.Message = "nothing delivered"
		return resp, nil
	}

	sender, err := harvester.NewEmailSender(
		os.Getenv("EMAIL_FROM"),
		os.Getenv("EMAIL_PASSWORD"),
		recipients(cfg),
	)
	if err != nil {
		resp.StatusCode = 400
		resp.Message = err.Error()
		return resp, err
	}
	if err := sender.Send(result.Subject, result.HTML); err != nil {
		resp.StatusCode = 500
		resp.Message = err.Error()
		return resp, err
	}

	resp.Delivered = true
	resp.Message = fmt.Sprintf("report sent: %d articles, %d issuer blocks", resp.Articles, resp.Issuers)
	return resp, nil
}

func applyEnvOverrides(cfg *harvester.Config) {
	if kw := os.Getenv("KEYWORD"); kw != "" {
		var keywords []string
		for _, part := range strings.Split(kw, "|") {
			if part = strings.TrimSpace(part); part != "" {
				keywords = append(keywords, part)
			}
		}
		cfg.Keywords = keywords
	}
	if hr := os.Getenv("HOURS_RECENT"); hr != "" {
		if val, err := strconv.Atoi(hr); err == nil && val > 0 {
			cfg.HoursRecent = val
		}
	}
}

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

func main() {
	lambda.Start(Handler)
}
