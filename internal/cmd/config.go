package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sitegate/sitegate/internal/config"
	"github.com/sitegate/sitegate/internal/observability"
)

var configShowRedact bool

// Keys whose values never reach the terminal.
var secretConfigKeys = []string{"redis.password", "store.auth_token", "admin.token"}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after merging defaults, the config file, and
SITEGATE_* environment variables. Secrets are redacted unless --redact=false
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate before dumping so a broken config fails loudly here too
		if _, err := config.Load(); err != nil {
			return err
		}

		settings := viper.AllSettings()
		if configShowRedact {
			for _, key := range secretConfigKeys {
				redactSetting(settings, key)
			}
		}

		if file := viper.ConfigFileUsed(); file != "" {
			observability.CLILogger.Debug("Using config file", zap.String("path", file))
		}

		out, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}

		_, err = os.Stdout.Write(out)
		return err
	},
}

// redactSetting replaces a dotted key's value with "(set)" when non-empty.
func redactSetting(settings map[string]any, dotted string) {
	section := settings
	keys := strings.Split(dotted, ".")
	for i, key := range keys {
		if i == len(keys)-1 {
			if value, ok := section[key]; ok {
				if s, ok := value.(string); !ok || s != "" {
					section[key] = "(set)"
				}
			}
			return
		}
		next, ok := section[key].(map[string]any)
		if !ok {
			return
		}
		section = next
	}
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowRedact, "redact", true, "redact secrets in the output")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
