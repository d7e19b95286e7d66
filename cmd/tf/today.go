package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/timeparsing"
	"github.com/rkoval/taskforge/internal/types"
	"github.com/rkoval/taskforge/internal/ui"
)

var todayCmd = &cobra.Command{
	Use:     "today [id...]",
	GroupID: "work",
	Short:   "Select items to work on today, or show today's plan",
	Long: `With item IDs, records today's work assignments for the acting user and
moves pending items to assigned. Selecting the same item twice on one day
updates the existing assignment instead of duplicating it.

Without arguments, lists the user's assignments for today.`,
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = actor
		}

		if len(args) == 0 {
			showTodayPlan(user)
			return
		}

		refs := make([]types.ItemRef, 0, len(args))
		for _, arg := range args {
			refs = append(refs, resolveRef(arg))
		}
		if err := manager.SelectForToday(rootCtx, user, refs); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"user": user, "selected": refs})
			return
		}
		okf("Selected %d item(s) for %s today", len(refs), user)
	},
}

func showTodayPlan(user string) {
	date := types.DateOf(time.Now())
	assignments, err := store.ListAssignments(rootCtx, types.AssignmentFilter{User: user, Date: date})
	if err != nil {
		FatalError("failed to list assignments: %v", err)
	}

	if jsonOutput {
		outputJSON(assignments)
		return
	}

	if len(assignments) == 0 {
		fmt.Println(ui.RenderMuted(fmt.Sprintf("Nothing selected for %s on %s.", user, date)))
		return
	}
	fmt.Printf("%s %s\n", ui.RenderCategory("today"), ui.RenderMuted(date+" / "+user))
	var planned, actual int
	for _, a := range assignments {
		status := string(a.Status)
		if a.Status == types.AssignmentCompleted {
			status = ui.RenderPass(status)
		} else {
			status = ui.RenderMuted(status)
		}
		line := fmt.Sprintf("  %-14s %-12s est %s", a.Key.ItemID, status, timeparsing.FormatMinutes(a.EstimatedMinutes))
		planned += a.EstimatedMinutes
		if a.ActualMinutes != nil {
			line += fmt.Sprintf(", actual %s", timeparsing.FormatMinutes(*a.ActualMinutes))
			actual += *a.ActualMinutes
		}
		if a.Note != "" {
			line += ui.RenderMuted("  " + a.Note)
		}
		fmt.Println(line)
	}
	fmt.Println(ui.RenderMuted(fmt.Sprintf("  planned %s, logged %s",
		timeparsing.FormatMinutes(planned), timeparsing.FormatMinutes(actual))))
}

func init() {
	todayCmd.Flags().StringP("user", "u", "", "Select on behalf of another user (default: acting user)")
	rootCmd.AddCommand(todayCmd)
}
