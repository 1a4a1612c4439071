// Package config loads the ngstate CLI configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/pkg/layout"
	toml "github.com/pelletier/go-toml/v2"
)

const defaultConfigPath = "~/.config/ngstate/config.toml"

// Config is the resolved CLI configuration.
type Config struct {
	ProjectURL       string
	TopLevelFunction string
	SessionDir       string
	Viewer           Viewer
	Datasets         map[string]layout.Dataset
	// Voxel size overrides keyed by dataset name.
	Dimensions map[string]ngstate.Dimensions
}

// Viewer holds the default document settings.
type Viewer struct {
	VoxelSize         float64   `toml:"voxel_size"`
	VoxelUnit         string    `toml:"voxel_unit"`
	Position          []float64 `toml:"position"`
	CrossSectionScale float64   `toml:"cross_section_scale"`
	ProjectionScale   float64   `toml:"projection_scale"`
	Layout            string    `toml:"layout"`
}

type rawDataset struct {
	Location  string                `toml:"location"`
	VoxelSize float64               `toml:"voxel_size"`
	VoxelUnit string                `toml:"voxel_unit"`
	Layers    []layout.DatasetLayer `toml:"layers"`
}

type rawConfig struct {
	ProjectURL       string                `toml:"project_url"`
	TopLevelFunction string                `toml:"top_level_function"`
	SessionDir       string                `toml:"session_dir"`
	Viewer           Viewer                `toml:"viewer"`
	Datasets         map[string]rawDataset `toml:"datasets"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	defaults := ngstate.DefaultDocument()
	preset, _ := defaults.Layout.(string)
	return Config{
		TopLevelFunction: "clio_toplevel",
		SessionDir:       mustExpand("~/.local/share/ngstate/sessions"),
		Viewer: Viewer{
			VoxelSize:         defaults.Dimensions["x"].Scale,
			VoxelUnit:         defaults.Dimensions["x"].Unit,
			Position:          append([]float64(nil), defaults.Position...),
			CrossSectionScale: *defaults.CrossSectionScale,
			ProjectionScale:   *defaults.ProjectionScale,
			Layout:            preset,
		},
		Datasets:   map[string]layout.Dataset{},
		Dimensions: layout.DefaultDimensionOverrides(),
	}
}

// Load parses the TOML file at path, falling back to Default when the file is
// missing. Unset keys keep their default values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data over Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	raw := rawConfig{Viewer: cfg.Viewer}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ProjectURL = strings.TrimSpace(raw.ProjectURL)
	if fn := strings.TrimSpace(raw.TopLevelFunction); fn != "" {
		cfg.TopLevelFunction = fn
	}
	if dir := strings.TrimSpace(raw.SessionDir); dir != "" {
		cfg.SessionDir = mustExpand(dir)
	}
	cfg.Viewer = raw.Viewer
	if cfg.Viewer.VoxelSize <= 0 {
		return Config{}, fmt.Errorf("parse config: viewer.voxel_size must be positive")
	}
	if strings.TrimSpace(cfg.Viewer.VoxelUnit) == "" {
		cfg.Viewer.VoxelUnit = "m"
	}

	for name, ds := range raw.Datasets {
		cfg.Datasets[name] = layout.Dataset{Name: name, Location: ds.Location, Layers: ds.Layers}
		if ds.VoxelSize > 0 {
			unit := ds.VoxelUnit
			if unit == "" {
				unit = cfg.Viewer.VoxelUnit
			}
			cfg.Dimensions[name] = layout.Isotropic(ds.VoxelSize, unit)
		}
	}
	return cfg, nil
}

// DefaultDocument builds the document the viewer starts from and resets to.
func (c Config) DefaultDocument() ngstate.Document {
	doc := ngstate.DefaultDocument()
	doc.Dimensions = layout.Isotropic(c.Viewer.VoxelSize, c.Viewer.VoxelUnit)
	if len(c.Viewer.Position) > 0 {
		doc.Position = append([]float64(nil), c.Viewer.Position...)
	}
	if c.Viewer.CrossSectionScale > 0 {
		scale := c.Viewer.CrossSectionScale
		doc.CrossSectionScale = &scale
	}
	if c.Viewer.ProjectionScale > 0 {
		scale := c.Viewer.ProjectionScale
		doc.ProjectionScale = &scale
	}
	if c.Viewer.Layout != "" {
		doc.Layout = c.Viewer.Layout
	}
	return doc
}

// LayoutParams returns layout parameters for the configured project.
func (c Config) LayoutParams() layout.Params {
	return layout.Params{
		ProjectURL:       c.ProjectURL,
		TopLevelFunction: c.TopLevelFunction,
		Dimensions:       c.Dimensions,
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
