package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	GroupID: "items",
	Short:   "Delete an item and everything derived from it",
	Long: `Deletes the item with its assignments, work sessions, and history.
Deleting a task also deletes all of its subtasks. This is permanent;
pass --force to skip the confirmation prompt.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := resolveRef(args[0])
		force, _ := cmd.Flags().GetBool("force")

		if ref.Kind == types.KindTask {
			subs, err := store.ListSubtasks(rootCtx, types.SubtaskFilter{TaskID: ref.ID})
			if err != nil {
				FatalError("%v", err)
			}
			if len(subs) > 0 && !force && !jsonOutput {
				fmt.Printf("%s %s has %d subtask(s) that will be deleted with it.\n",
					ui.RenderWarn("⚠"), ref.ID, len(subs))
			}
		}

		if !force && !jsonOutput {
			if !confirm(fmt.Sprintf("Delete %s permanently?", ref.ID)) {
				fmt.Println("Aborted.")
				return
			}
		}

		if err := orch.Delete(rootCtx, ref); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]string{"deleted": ref.ID})
			return
		}
		okf("Deleted %s", ref.ID)
	},
}

// confirm prompts on stdout and reads a y/yes answer. Quiet mode never
// prompts; destructive commands then require --force.
func confirm(prompt string) bool {
	if debug.IsQuiet() {
		return false
	}
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
