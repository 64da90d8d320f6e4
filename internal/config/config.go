package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vpc-scene/internal/pattern"
)

// Defaults applied by Resolve.
const (
	DefaultRootName      = "Products"
	DefaultGroundEpsilon = 1e-4
	DefaultMaxAssetSize  = 256 * datasize.MB
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultPreviewSize   = 256
	DefaultSupersample   = 2
	DefaultBackground    = "#f0f0f0"
)

var (
	DefaultFloorConnectors  = []string{"*floor*"}
	DefaultWallMountedTypes = []string{"*wall*"}
)

// Config holds the paths and settings shared by the tools.
type Config struct {
	// Paths
	BaseDir        string   `json:"base_dir" toml:"base_dir" yaml:"base_dir"`
	Catalog        string   `json:"catalog" toml:"catalog" yaml:"catalog"`
	Configurations []string `json:"configurations" toml:"configurations" yaml:"configurations"`
	AssetRoot      string   `json:"asset_root" toml:"asset_root" yaml:"asset_root"`
	OutputDir      string   `json:"output_dir" toml:"output_dir" yaml:"output_dir"`

	// Placement
	RootName         string   `json:"root_name" toml:"root_name" yaml:"root_name"`
	FloorConnectors  []string `json:"floor_connectors" toml:"floor_connectors" yaml:"floor_connectors"`
	WallMountedTypes []string `json:"wall_mounted_types" toml:"wall_mounted_types" yaml:"wall_mounted_types"`
	GroundEpsilon    float64  `json:"ground_epsilon" toml:"ground_epsilon" yaml:"ground_epsilon"`

	// Fetching
	MaxAssetSize datasize.ByteSize `json:"max_asset_size" toml:"max_asset_size" yaml:"max_asset_size"`
	HTTPTimeout  Duration          `json:"http_timeout" toml:"http_timeout" yaml:"http_timeout"`
	Workers      int               `json:"workers" toml:"workers" yaml:"workers"`

	// Background is the scene background color recorded in every bundle,
	// as "#rrggbb".
	Background string `json:"background" toml:"background" yaml:"background"`

	Preview Preview `json:"preview" toml:"preview" yaml:"preview"`
	Log     Log     `json:"log" toml:"log" yaml:"log"`
}

// Preview configures the bundle preview image.
type Preview struct {
	Enabled     bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	Size        int    `json:"size" toml:"size" yaml:"size"`
	Width       int    `json:"width" toml:"width" yaml:"width"`
	Height      int    `json:"height" toml:"height" yaml:"height"`
	Supersample int    `json:"supersample" toml:"supersample" yaml:"supersample"`
	Filter      string `json:"filter" toml:"filter" yaml:"filter"`
	Backdrop    string `json:"backdrop" toml:"backdrop" yaml:"backdrop"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `json:"level" toml:"level" yaml:"level"`
	Format string `json:"format" toml:"format" yaml:"format"`
}

// Duration is a time.Duration read from strings such as "30s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads a config file. The format follows the extension: .json,
// .toml, .yaml or .yml. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: expand %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config: %s: unknown format %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	BaseDir        string
	Catalog        string
	Configurations []string
	AssetRoot      string
	OutputDir      string
	RootName       string
	Workers        int
	Preview        bool
	LogLevel       string
	LogFormat      string
}

// Resolve applies flag overrides, expands and anchors paths, and fills in
// defaults. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) error {
	if flags.BaseDir != "" {
		c.BaseDir = flags.BaseDir
	}
	if flags.Catalog != "" {
		c.Catalog = flags.Catalog
	}
	if len(flags.Configurations) > 0 {
		c.Configurations = flags.Configurations
	}
	if flags.AssetRoot != "" {
		c.AssetRoot = flags.AssetRoot
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.RootName != "" {
		c.RootName = flags.RootName
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Preview {
		c.Preview.Enabled = true
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.Log.Format = flags.LogFormat
	}

	var err error
	if c.BaseDir, err = expand(c.BaseDir, ""); err != nil {
		return err
	}
	for _, p := range []*string{&c.Catalog, &c.AssetRoot, &c.OutputDir, &c.Preview.Backdrop} {
		if *p, err = expand(*p, c.BaseDir); err != nil {
			return err
		}
	}
	for i := range c.Configurations {
		if c.Configurations[i], err = expand(c.Configurations[i], c.BaseDir); err != nil {
			return err
		}
	}
	if c.OutputDir == "" {
		c.OutputDir = c.BaseDir
		if c.OutputDir == "" {
			c.OutputDir = "."
		}
	}

	if c.RootName == "" {
		c.RootName = DefaultRootName
	}
	if len(c.FloorConnectors) == 0 {
		c.FloorConnectors = DefaultFloorConnectors
	}
	if len(c.WallMountedTypes) == 0 {
		c.WallMountedTypes = DefaultWallMountedTypes
	}
	if c.GroundEpsilon <= 0 {
		c.GroundEpsilon = DefaultGroundEpsilon
	}
	if c.MaxAssetSize == 0 {
		c.MaxAssetSize = DefaultMaxAssetSize
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Preview.Size <= 0 {
		c.Preview.Size = DefaultPreviewSize
	}
	if c.Preview.Supersample <= 0 {
		c.Preview.Supersample = DefaultSupersample
	}
	if c.Background == "" {
		c.Background = DefaultBackground
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return nil
}

// BackgroundColor parses Background as 0xRRGGBB.
func (c *Config) BackgroundColor() (uint32, error) {
	h := strings.TrimPrefix(strings.TrimSpace(c.Background), "#")
	if len(h) != 6 {
		return 0, fmt.Errorf("config: background %q: want #rrggbb", c.Background)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("config: background %q: %w", c.Background, err)
	}
	return uint32(v), nil
}

// FloorMatcher compiles FloorConnectors.
func (c *Config) FloorMatcher() (*pattern.Matcher, error) {
	m, err := pattern.Compile(c.FloorConnectors...)
	if err != nil {
		return nil, fmt.Errorf("config: floor_connectors: %w", err)
	}
	return m, nil
}

// WallMatcher compiles WallMountedTypes.
func (c *Config) WallMatcher() (*pattern.Matcher, error) {
	m, err := pattern.Compile(c.WallMountedTypes...)
	if err != nil {
		return nil, fmt.Errorf("config: wall_mounted_types: %w", err)
	}
	return m, nil
}

// expand resolves a leading ~ and anchors relative paths at base. URLs are
// left alone.
func expand(p, base string) (string, error) {
	if p == "" || strings.Contains(p, "://") {
		return p, nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("config: expand %s: %w", p, err)
	}
	if base != "" && !filepath.IsAbs(out) {
		out = filepath.Join(base, out)
	}
	return out, nil
}
