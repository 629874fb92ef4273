package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// MaxVerbosity is the highest verbosity understood by the benchmark executable.
const MaxVerbosity = 4

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if passes := viper.GetInt("ci.num_passes"); passes < 1 {
		errors = append(errors, fmt.Sprintf("ci.num_passes must be positive, got: %d", passes))
	}

	if count := viper.GetInt("template.count"); count < 1 {
		errors = append(errors, fmt.Sprintf("template.count must be positive, got: %d", count))
	}

	if v := viper.GetInt("template.verbosity"); v < 0 || v > MaxVerbosity {
		errors = append(errors, fmt.Sprintf("template.verbosity must be between 0 and %d, got: %d", MaxVerbosity, v))
	}

	if limit := viper.GetInt("history.limit"); limit < 1 {
		errors = append(errors, fmt.Sprintf("history.limit must be positive, got: %d", limit))
	}

	switch strings.ToLower(viper.GetString("history.driver")) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		errors = append(errors, fmt.Sprintf("history.driver must be sqlite or postgres, got: %q", viper.GetString("history.driver")))
	}

	if viper.GetBool("notifications.slack.enabled") &&
		viper.GetString("notifications.slack.webhook_url") == "" &&
		os.Getenv("SLACK_BOT_USER_TOKEN") == "" {
		errors = append(errors, "notifications.slack.enabled requires notifications.slack.webhook_url or SLACK_BOT_USER_TOKEN")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}
