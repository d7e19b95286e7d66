package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/config"
	"github.com/rkoval/taskforge/internal/ui"
)

// configKeys are the settable workspace configuration keys.
var configKeys = []string{
	config.KeyStorageBackend,
	config.KeyStoragePath,
	config.KeyStorageDSN,
	config.KeyActor,
	config.KeyReviewers,
	config.KeyIDPrefix,
	config.KeyWebhookURL,
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Get and set workspace configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		key := args[0]
		if !knownConfigKey(key) {
			FatalError("unknown key %q (known: %s)", key, strings.Join(configKeys, ", "))
		}
		value := config.GetString(key)
		if jsonOutput {
			outputJSON(map[string]string{key: value})
			return
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one configuration value to config.yaml",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if !knownConfigKey(key) {
			FatalError("unknown key %q (known: %s)", key, strings.Join(configKeys, ", "))
		}
		if err := config.Set(workspaceRoot, key, value); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{key: value})
			return
		}
		okf("%s = %s", key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all configuration values",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		if jsonOutput {
			out := make(map[string]string, len(configKeys))
			for _, key := range configKeys {
				out[key] = config.GetString(key)
			}
			outputJSON(out)
			return
		}
		for _, key := range configKeys {
			value := config.GetString(key)
			if value == "" {
				value = ui.RenderMuted("(unset)")
			}
			fmt.Printf("%-22s %s\n", key, value)
		}
	},
}

func knownConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
