package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/internal/config"
	"github.com/goliatone/go-ngstate/pkg/activity"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ngstate",
	Short: "Viewer-state synchronization for embedded Neuroglancer viewers",
	Long: `Replays viewer actions against the canonical viewer document, builds
dataset layouts and keeps saved viewer sessions.

Examples:
  ngstate layout hemibrain --position 17000,20175,21000   # INIT_VIEWER for a dataset
  ngstate replay actions.jsonl                            # Apply an action log
  ngstate layout mb20 | ngstate replay                    # Pipe a layout into the reducer
  ngstate session resume --dataset mb20 --user alice      # Load a saved session`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/ngstate/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log reducer events to stderr")
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// activityLogger reports activity events through logger.
func activityLogger(logger *slog.Logger) *activity.Emitter {
	hook := activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		logger.InfoContext(ctx, "activity",
			slog.String("verb", event.Verb),
			slog.String("object_type", event.ObjectType),
			slog.String("object_id", event.ObjectID),
			slog.String("channel", event.Channel),
		)
		return nil
	})
	return activity.NewEmitter(activity.Hooks{hook}, activity.Config{Enabled: verbose})
}

type wireAction struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func writeInitViewer(w io.Writer, action ngstate.InitViewer) error {
	return json.NewEncoder(w).Encode(wireAction{Type: action.ActionType(), Payload: action.Document})
}
