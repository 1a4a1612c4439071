package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-ngstate/pkg/layout"
	"github.com/spf13/cobra"
)

var (
	layoutPosition []float64
	layoutScale    float64
	layoutKind     string
)

var layoutCmd = &cobra.Command{
	Use:   "layout <dataset>",
	Short: "Print the INIT_VIEWER action that opens a configured dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

func init() {
	layoutCmd.Flags().Float64SliceVar(&layoutPosition, "position", nil, "camera position x,y,z")
	layoutCmd.Flags().Float64Var(&layoutScale, "cross-section-scale", 0, "cross-section zoom (default from config)")
	layoutCmd.Flags().StringVar(&layoutKind, "kind", "", "annotation kind appended to the annotation source (e.g. atlas)")
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dataset, ok := cfg.Datasets[args[0]]
	if !ok {
		names := make([]string, 0, len(cfg.Datasets))
		for name := range cfg.Datasets {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown dataset %q (configured: %s)", args[0], strings.Join(names, ", "))
	}

	params := cfg.LayoutParams()
	params.Position = layoutPosition
	params.AnnotationKind = layoutKind
	if layoutScale > 0 {
		scale := layoutScale
		params.CrossSectionScale = &scale
	}

	action, err := layout.InitAction(cfg.DefaultDocument(), dataset, params)
	if err != nil {
		return err
	}
	return writeInitViewer(cmd.OutOrStdout(), action)
}
