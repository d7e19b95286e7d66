package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Initialize a taskforge workspace in the current directory",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		dir, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}

		path, err := config.WriteDefaultConfig(dir)
		if err != nil {
			FatalError("%v", err)
		}

		if prefix, _ := cmd.Flags().GetString("prefix"); prefix != "" {
			if err := config.Set(dir, config.KeyIDPrefix, prefix); err != nil {
				FatalError("%v", err)
			}
		}
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			if err := config.Set(dir, config.KeyStorageBackend, backend); err != nil {
				FatalError("%v", err)
			}
		}

		if jsonOutput {
			outputJSON(map[string]string{"config": path})
			return
		}
		okf("Initialized workspace (%s)", path)
	},
}

func init() {
	initCmd.Flags().String("prefix", "", "ID prefix for new tasks (default \"tf\")")
	initCmd.Flags().String("backend", "", "Storage backend: sqlite, postgres, or memory")
	rootCmd.AddCommand(initCmd)
}
