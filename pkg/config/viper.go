// Package config initializes the process-wide Viper instance used by the CLI.
// It reads settings from a config file, ACTIVITY_* environment variables and
// bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	internalconfig "github.com/JakeFAU/activity-heatmap/internal/config"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
)

// InitConfig prepares v: defaults, search paths, environment binding, and the
// config file. An explicit path must exist; a missing file on the search
// paths is not an error.
func InitConfig(v *viper.Viper, path string) error {
	internalconfig.SetDefaults(v)

	v.SetEnvPrefix(internalconfig.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/activity-heatmap/")
		v.AddConfigPath("$HOME/.activity-heatmap")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	logging.L.Info("Using config file", zap.String("path", v.ConfigFileUsed()))
	return nil
}
