package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. JBENCH_CI_NUM_PASSES for ci.num_passes.
const EnvPrefix = "JBENCH"

// SetDefaults registers the default value of every config key.
func SetDefaults() {
	viper.SetDefault("debug", false)
	viper.SetDefault("no_color", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("metrics_file", "")

	viper.SetDefault("ci.num_passes", 1)
	viper.SetDefault("ci.single_shot", false)

	viper.SetDefault("template.count", 1)
	viper.SetDefault("template.verbosity", 1)

	viper.SetDefault("history.driver", "sqlite")
	viper.SetDefault("history.dsn", "")
	viper.SetDefault("history.limit", 10)

	viper.SetDefault("notifications.slack.enabled", false)
	viper.SetDefault("notifications.slack.channel", "#benchmarks")
	viper.SetDefault("notifications.slack.webhook_url", "")
}

// Load initializes the configuration from .env, an optional config file and
// environment variables. A missing default config file is not an error; a
// missing or unreadable explicit cfgFile is.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("jbench")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	slog.Debug("Using config file", "path", viper.ConfigFileUsed())
	return nil
}
