// Command tf is the taskforge CLI: a task and subtask lifecycle tracker
// with review gates, sequential unlocking, and per-day work assignments.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rkoval/taskforge/internal/assignment"
	"github.com/rkoval/taskforge/internal/config"
	"github.com/rkoval/taskforge/internal/debug"
	"github.com/rkoval/taskforge/internal/eventbus"
	"github.com/rkoval/taskforge/internal/lifecycle"
	"github.com/rkoval/taskforge/internal/notification"
	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/storage/factory"
	"github.com/rkoval/taskforge/internal/telemetry"
	"github.com/rkoval/taskforge/internal/ui"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	rootCtx    context.Context
	rootCancel context.CancelFunc

	workspaceRoot string
	store         storage.Storage
	bus           *eventbus.Bus
	orch          *lifecycle.Orchestrator
	manager       *assignment.Manager

	actor       string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "tf - Task lifecycle tracker",
	Long: `Tasks broken into subtasks, moved through a review gate.

Work items travel pending -> assigned -> in_progress -> completed ->
in_review -> approved, with blocked and returned as detours. Parent task
status is computed from subtasks; approving the last subtask approves the
parent. Sequential tasks unlock their next subtask level as earlier
levels are approved.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("tf version %s\n", Version)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if verboseFlag {
			debug.SetVerbose(true)
		}
		if quietFlag {
			debug.SetQuiet(true)
		}
		ui.Configure()

		if isNoStoreCommand(cmd) {
			return
		}

		root, err := config.FindWorkspaceRoot()
		if err != nil {
			FatalError("%v", err)
		}
		workspaceRoot = root
		if err := config.Initialize(root); err != nil {
			FatalError("%v", err)
		}
		config.Watch(func() {
			debug.Logf("config: %s reloaded\n", config.WorkspaceDir)
		})

		if actor == "" {
			actor = config.Actor()
		}
		if actor == "" {
			FatalError("no actor configured (set actor in config, TF_ACTOR, or pass --actor)")
		}

		if err := telemetry.Init(rootCtx, "taskforge", Version); err != nil {
			debug.Logf("telemetry init failed: %v\n", err)
		}
		openStore()
		buildEngine()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if store != nil {
			_ = store.Close()
		}
		telemetry.Shutdown(context.Background())
		if rootCancel != nil {
			rootCancel()
		}
	},
}

// isNoStoreCommand reports whether the command runs without a workspace.
func isNoStoreCommand(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "init", "help", "version", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return false
}

func openStore() {
	var err error
	store, err = factory.New(rootCtx, config.GetString(config.KeyStorageBackend), factory.Options{
		Path: config.GetString(config.KeyStoragePath),
		DSN:  config.GetString(config.KeyStorageDSN),
	})
	if err != nil {
		FatalError("failed to open storage: %v", err)
	}
}

func buildEngine() {
	bus = eventbus.New()
	dispatcher := notification.NewDispatcher(config.GetString(config.KeyWebhookURL))
	bus.Register(notification.NewBusHandler(dispatcher))
	bus.Register(eventLogHandler{dir: filepath.Join(workspaceRoot, config.WorkspaceDir)})

	recorder := lifecycle.NewRecorder(store)
	manager = assignment.NewManager(store, recorder, bus)
	orch = lifecycle.NewOrchestrator(store, bus, manager, config.GetStringSlice(config.KeyReviewers))
}

// FatalError prints an error (as JSON when --json is set) and exits.
func FatalError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		outputJSON(map[string]string{"error": msg})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor name for the audit trail (default: config actor, $TF_ACTOR, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "items", Title: "Working With Items:"})
	rootCmd.AddGroup(&cobra.Group{ID: "work", Title: "Daily Work:"})
	rootCmd.AddGroup(&cobra.Group{ID: "review", Title: "Review Gate:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
