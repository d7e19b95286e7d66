package main

import (
	"github.com/spf13/cobra"
)

var unblockCmd = &cobra.Command{
	Use:     "unblock <id>",
	GroupID: "work",
	Short:   "Unblock an item back to pending",
	Long: `Moves a blocked item back to pending, clears the stored block reason,
and retracts the block's history entry. Work assignments on the item are
cleaned up unless the assignee logged work sessions against them.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		if err := orch.Unblock(rootCtx, ref, actor); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "status": "pending"})
			return
		}
		okf("Unblocked %s", ref.ID)
	},
}

func init() {
	rootCmd.AddCommand(unblockCmd)
}
