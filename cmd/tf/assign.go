package main

import (
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:     "assign <id> <user>",
	Aliases: []string{"reassign"},
	GroupID: "work",
	Short:   "Reassign an item to another user",
	Long: `Replaces the item's assignee and notifies the new one. Assignment rows
belonging to previous assignees are deleted unless they logged work
sessions; worked rows survive as the audit record of effort spent.`,
	Args: cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		target := args[1]

		if err := manager.Reassign(rootCtx, ref, target, actor); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "assignee": target})
			return
		}
		okf("Assigned %s to %s", ref.ID, target)
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}
