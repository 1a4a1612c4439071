package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var (
	replayLive    string
	replayDirty   bool
	replayMetrics bool
	replayDataset string
	replayActor   string
)

var replayCmd = &cobra.Command{
	Use:   "replay [actions.jsonl]",
	Short: "Apply a JSON-lines action log and print the resulting document",
	Long: `Reads one {"type": ..., "payload": ...} action per line from the file or
stdin, dispatches each through the reducer and prints the final document.
Blank lines and lines starting with # are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayLive, "live", "", "JSON file read as the viewer's live state on import")
	replayCmd.Flags().BoolVar(&replayDirty, "dirty", false, "mark the viewer dirty before the first action")
	replayCmd.Flags().BoolVar(&replayMetrics, "metrics", false, "print Prometheus counters to stderr")
	replayCmd.Flags().StringVar(&replayDataset, "dataset", "", "dataset name recorded on activity events")
	replayCmd.Flags().StringVar(&replayActor, "actor", "", "actor recorded on activity events")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open actions: %w", err)
		}
		defer file.Close()
		in = file
	}

	logger := newLogger(cmd.ErrOrStderr())
	registry := prometheus.NewRegistry()
	opts := []ngstate.Option{
		ngstate.WithDefaults(cfg.DefaultDocument()),
		ngstate.WithLogger(ngstate.NewSlogLogger(logger)),
		ngstate.WithMetrics(metrics.New(registry)),
		ngstate.WithActivity(activityLogger(logger), replayActor),
	}
	if replayLive != "" {
		opts = append(opts, ngstate.WithLiveSource(fileLiveSource(replayLive)))
	}
	store := ngstate.NewStore(opts...)
	store.SetDataset(replayDataset)
	if replayDirty {
		store.Syncer().MarkDirty(true)
	}

	if err := replay(cmd, store, in); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(store.State().NgState); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if replayMetrics {
		families, err := registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		for _, family := range families {
			if _, err := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), family); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
		}
	}
	return nil
}

func replay(cmd *cobra.Command, store *ngstate.Store, in io.Reader) error {
	decoder := ngstate.NewActionDecoder(
		ngstate.TransformWithProgramCache(ngstate.NewMemoryProgramCache()),
		ngstate.TransformWithFunctionRegistry(ngstate.ViewerFunctions()),
	)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		action, err := decoder.Decode(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		store.Dispatch(cmd.Context(), action)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read actions: %w", err)
	}
	return nil
}

// fileLiveSource re-reads path on every import.
func fileLiveSource(path string) ngstate.LiveSource {
	return ngstate.LiveSourceFunc(func() (map[string]any, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read live state: %w", err)
		}
		var state map[string]any
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("decode live state: %w", err)
		}
		return state, nil
	})
}
