package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/ui"
)

var blockCmd = &cobra.Command{
	Use:     "block <id>",
	GroupID: "work",
	Short:   "Mark an item blocked",
	Long: `Marks an item blocked and stores the reason on the item. The reason is
required; a blocked item with no recorded cause is not actionable.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		reason, _ := cmd.Flags().GetString("message")
		if strings.TrimSpace(reason) == "" {
			FatalError("blocking requires a reason (--message)")
		}

		if err := orch.Block(rootCtx, ref, reason, actor); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"id": ref.ID, "status": "blocked", "reason": reason})
			return
		}
		debug.PrintNormal("%s Blocked %s: %s\n", ui.RenderFail("✗"), ref.ID, reason)
	},
}

func init() {
	blockCmd.Flags().StringP("message", "m", "", "Block reason (required)")
	rootCmd.AddCommand(blockCmd)
}
