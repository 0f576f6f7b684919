// Package config provides Viper-based configuration loading for the battlemap
// relay and tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/battlemap/internal/battlemap/editor"
	"github.com/cory-johannsen/battlemap/internal/battlemap/fog"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/battlemap/mapdoc"
	"github.com/cory-johannsen/battlemap/internal/battlemap/selection"
	"github.com/cory-johannsen/battlemap/internal/battlemap/walls"
)

// DatabaseConfig holds PostgreSQL connection settings for the update journal.
type DatabaseConfig struct {
	// Enabled selects the Postgres journal; when false the relay keeps
	// updates in memory.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RelayConfig holds the listen addresses of the update relay.
type RelayConfig struct {
	// GRPCHost is the bind/connect address for the gRPC Sync service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC Sync service.
	GRPCPort int `mapstructure:"grpc_port"`
	// HTTPHost is the bind address for the WebSocket gateway and health check.
	HTTPHost string `mapstructure:"http_host"`
	// HTTPPort is the TCP port for the WebSocket gateway.
	HTTPPort int `mapstructure:"http_port"`
	// SubscriberBuffer is the number of updates queued per subscriber before
	// it is dropped as too slow.
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCAddr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (r RelayConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", r.GRPCHost, r.GRPCPort)
}

// HTTPAddr returns the "host:port" HTTP address.
func (r RelayConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", r.HTTPHost, r.HTTPPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EditorConfig holds the pointer tolerances of the wall and selection tools,
// in map units unless noted.
type EditorConfig struct {
	HitThreshold          float64 `mapstructure:"hit_threshold"`
	HandleRadius          float64 `mapstructure:"handle_radius"`
	MergeTolerance        float64 `mapstructure:"merge_tolerance"`
	DoorHitThreshold      float64 `mapstructure:"door_hit_threshold"`
	MinDoorWidth          float64 `mapstructure:"min_door_width"`
	EndpointSnapThreshold float64 `mapstructure:"endpoint_snap_threshold"`
	MinShapeSize          float64 `mapstructure:"min_shape_size"`
	EllipseSegments       int     `mapstructure:"ellipse_segments"`
	// DragThreshold is in screen pixels.
	DragThreshold        float64 `mapstructure:"drag_threshold"`
	DoubleClickTolerance float64 `mapstructure:"double_click_tolerance"`
	AutoDoorMinLength    float64 `mapstructure:"auto_door_min_length"`
	AutoDoorMaxLength    float64 `mapstructure:"auto_door_max_length"`
	AutoDoorTolerance    float64 `mapstructure:"auto_door_tolerance"`
	// ActiveLayer is the layer new walls land on when the map has not
	// chosen one.
	ActiveLayer string `mapstructure:"active_layer"`
}

// GridConfig is the default grid for maps that have not set one.
type GridConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Type     string  `mapstructure:"type"`
	CellSize float64 `mapstructure:"cell_size"`
	OffsetX  float64 `mapstructure:"offset_x"`
	OffsetY  float64 `mapstructure:"offset_y"`
}

// Spec converts the section to a grid description.
func (g GridConfig) Spec() geom.GridSpec {
	return geom.GridSpec{Type: geom.GridType(g.Type), CellSize: g.CellSize, OffsetX: g.OffsetX, OffsetY: g.OffsetY}
}

// FogConfig sizes the fog mask and flood fill.
type FogConfig struct {
	MapWidth   float64 `mapstructure:"map_width"`
	MapHeight  float64 `mapstructure:"map_height"`
	Resolution float64 `mapstructure:"resolution"`
	MaxCells   int     `mapstructure:"max_cells"`
	// Diagonal enables 8-connected flood fill.
	Diagonal   bool    `mapstructure:"diagonal"`
	BrushWidth float64 `mapstructure:"brush_width"`
	// Opacity is the default fog opacity in [0,1].
	Opacity float64 `mapstructure:"opacity"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Grid     GridConfig     `mapstructure:"grid"`
	Fog      FogConfig      `mapstructure:"fog"`
}

// Default returns the built-in configuration without reading any file or
// environment variable.
//
// Postcondition: Default().Validate() returns nil.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of the defaults alone cannot fail.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateDatabase(c.Database),
		validateRelay(c.Relay),
		validateEditor(c.Editor),
		validateGrid(c.Grid),
		validateFog(c.Fog),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WallOptions converts the editor section for the wall authoring tools.
func (c Config) WallOptions() walls.Options {
	e := c.Editor
	return walls.Options{
		DoorHitThreshold:      e.DoorHitThreshold,
		MinDoorWidth:          e.MinDoorWidth,
		EndpointSnapThreshold: e.EndpointSnapThreshold,
		MinShapeSize:          e.MinShapeSize,
		EllipseSegments:       e.EllipseSegments,
		DragThreshold:         e.DragThreshold,
		DoubleClickTolerance:  e.DoubleClickTolerance,
		AutoDoorMinLength:     e.AutoDoorMinLength,
		AutoDoorMaxLength:     e.AutoDoorMaxLength,
		AutoDoorTolerance:     e.AutoDoorTolerance,
	}
}

// SelectionOptions converts the editor section for the selection engine.
func (c Config) SelectionOptions() selection.Options {
	return selection.Options{
		HitThreshold:   c.Editor.HitThreshold,
		HandleRadius:   c.Editor.HandleRadius,
		MergeTolerance: c.Editor.MergeTolerance,
	}
}

// FogOptions converts the fog section.
func (c Config) FogOptions() fog.Options {
	return fog.Options{
		Bounds:     geom.Rect{Max: geom.Pt(c.Fog.MapWidth, c.Fog.MapHeight)},
		Resolution: c.Fog.Resolution,
		MaxCells:   c.Fog.MaxCells,
		Diagonal:   c.Fog.Diagonal,
		BrushWidth: c.Fog.BrushWidth,
	}
}

// MapDefaults returns the settings a map falls back to before any are
// written.
func (c Config) MapDefaults() mapdoc.Settings {
	return mapdoc.Settings{
		FogOpacity:  c.Fog.Opacity,
		Grid:        c.Grid.Spec(),
		GridEnabled: c.Grid.Enabled,
		ActiveLayer: c.Editor.ActiveLayer,
	}
}

// EditorOptions bundles every tool option for editor.New.
func (c Config) EditorOptions() editor.Options {
	return editor.Options{
		Walls:     c.WallOptions(),
		Selection: c.SelectionOptions(),
		Fog:       c.FogOptions(),
		Defaults:  c.MapDefaults(),
	}
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateRelay(r RelayConfig) error {
	var errs []string
	if r.GRPCHost == "" {
		errs = append(errs, "relay.grpc_host must not be empty")
	}
	if r.GRPCPort < 1 || r.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("relay.grpc_port must be 1-65535, got %d", r.GRPCPort))
	}
	if r.HTTPPort < 0 || r.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("relay.http_port must be 0-65535, got %d", r.HTTPPort))
	}
	if r.SubscriberBuffer < 1 {
		errs = append(errs, fmt.Sprintf("relay.subscriber_buffer must be >= 1, got %d", r.SubscriberBuffer))
	}
	if r.ShutdownTimeout < 0 {
		errs = append(errs, "relay.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateEditor(e EditorConfig) error {
	var errs []string
	for _, f := range []struct {
		key string
		val float64
	}{
		{"editor.hit_threshold", e.HitThreshold},
		{"editor.handle_radius", e.HandleRadius},
		{"editor.merge_tolerance", e.MergeTolerance},
		{"editor.door_hit_threshold", e.DoorHitThreshold},
		{"editor.min_door_width", e.MinDoorWidth},
		{"editor.endpoint_snap_threshold", e.EndpointSnapThreshold},
	} {
		if f.val <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0, got %g", f.key, f.val))
		}
	}
	if e.MinShapeSize < 0 || e.DragThreshold < 0 || e.DoubleClickTolerance < 0 || e.AutoDoorTolerance < 0 {
		errs = append(errs, "editor tolerances must not be negative")
	}
	if e.EllipseSegments < 3 {
		errs = append(errs, fmt.Sprintf("editor.ellipse_segments must be >= 3, got %d", e.EllipseSegments))
	}
	if e.AutoDoorMinLength > e.AutoDoorMaxLength {
		errs = append(errs, "editor.auto_door_min_length must not exceed editor.auto_door_max_length")
	}
	if e.ActiveLayer == "" {
		errs = append(errs, "editor.active_layer must not be empty")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateGrid(g GridConfig) error {
	switch geom.GridType(g.Type) {
	case geom.GridNone, geom.GridSquare, geom.GridHexPointy, geom.GridHexFlat:
	default:
		return fmt.Errorf("grid.type must be one of [none, square, hex-pointy, hex-flat], got %q", g.Type)
	}
	if g.Enabled && g.CellSize <= 0 {
		return fmt.Errorf("grid.cell_size must be > 0 when the grid is enabled, got %g", g.CellSize)
	}
	return nil
}

func validateFog(f FogConfig) error {
	var errs []string
	if f.MapWidth <= 0 || f.MapHeight <= 0 {
		errs = append(errs, fmt.Sprintf("fog map size must be positive, got %gx%g", f.MapWidth, f.MapHeight))
	}
	if f.Resolution <= 0 {
		errs = append(errs, fmt.Sprintf("fog.resolution must be > 0, got %g", f.Resolution))
	}
	if f.MaxCells < 1 {
		errs = append(errs, fmt.Sprintf("fog.max_cells must be >= 1, got %d", f.MaxCells))
	}
	if f.BrushWidth <= 0 {
		errs = append(errs, fmt.Sprintf("fog.brush_width must be > 0, got %g", f.BrushWidth))
	}
	if f.Opacity < 0 || f.Opacity > 1 {
		errs = append(errs, fmt.Sprintf("fog.opacity must be within [0,1], got %g", f.Opacity))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and
// environment variables only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with BATTLEMAP_ prefix
	v.SetEnvPrefix("BATTLEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "battlemap")
	v.SetDefault("database.password", "battlemap")
	v.SetDefault("database.name", "battlemap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("relay.grpc_host", "127.0.0.1")
	v.SetDefault("relay.grpc_port", 50061)
	v.SetDefault("relay.http_host", "0.0.0.0")
	v.SetDefault("relay.http_port", 8081)
	v.SetDefault("relay.subscriber_buffer", 256)
	v.SetDefault("relay.shutdown_timeout", "10s")

	v.SetDefault("editor.hit_threshold", 20)
	v.SetDefault("editor.handle_radius", 10)
	v.SetDefault("editor.merge_tolerance", 0.1)
	v.SetDefault("editor.door_hit_threshold", 20)
	v.SetDefault("editor.min_door_width", 50)
	v.SetDefault("editor.endpoint_snap_threshold", 15)
	v.SetDefault("editor.min_shape_size", 5)
	v.SetDefault("editor.ellipse_segments", 16)
	v.SetDefault("editor.drag_threshold", 3)
	v.SetDefault("editor.double_click_tolerance", 2)
	v.SetDefault("editor.auto_door_min_length", 10)
	v.SetDefault("editor.auto_door_max_length", 150)
	v.SetDefault("editor.auto_door_tolerance", 2)
	v.SetDefault("editor.active_layer", "walls")

	v.SetDefault("grid.enabled", true)
	v.SetDefault("grid.type", "square")
	v.SetDefault("grid.cell_size", 50)
	v.SetDefault("grid.offset_x", 0)
	v.SetDefault("grid.offset_y", 0)

	v.SetDefault("fog.map_width", 4000)
	v.SetDefault("fog.map_height", 4000)
	v.SetDefault("fog.resolution", 10)
	v.SetDefault("fog.max_cells", 250000)
	v.SetDefault("fog.diagonal", false)
	v.SetDefault("fog.brush_width", 40)
	v.SetDefault("fog.opacity", 0.85)
}
