// Package config handles renderer configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all renderer settings.
type Config struct {
	Display DisplayConfig `yaml:"display"`
	Camera  CameraConfig  `yaml:"camera"`
	Render  RenderConfig  `yaml:"render"`
	Grid    GridConfig    `yaml:"grid"`
	Scene   SceneConfig   `yaml:"scene"`
	Preview PreviewConfig `yaml:"preview"`
	Panel   PanelConfig   `yaml:"panel"`
	IRQ     IRQConfig     `yaml:"irq"`
	Logging LoggingConfig `yaml:"logging"`
	Debug   DebugConfig   `yaml:"debug"`
}

// Display backends.
const (
	BackendWindow   = "window"
	BackendHeadless = "headless"
	BackendPanel    = "panel"
)

// DisplayConfig holds framebuffer and output settings.
type DisplayConfig struct {
	Width     int    `yaml:"width"`  // Framebuffer width in pixels
	Height    int    `yaml:"height"` // Framebuffer height in pixels
	Scale     int    `yaml:"scale"`  // Window pixels per framebuffer pixel
	RefreshHz int    `yaml:"refresh_hz"`
	Backend   string `yaml:"backend"` // window, headless or panel
	VSync     bool   `yaml:"vsync"`
}

// Vec is a 3-component vector in config files.
type Vec [3]float32

// CameraConfig holds the startup pose, projection and control sensitivity.
type CameraConfig struct {
	FOVDegrees        float32 `yaml:"fov_degrees"`
	FocalLength       float32 `yaml:"focal_length"`
	Position          Vec     `yaml:"position,flow"`
	Look              Vec     `yaml:"look,flow"`
	Up                Vec     `yaml:"up,flow"`
	MoveSpeed         float32 `yaml:"move_speed"`        // Voxels per key press
	MouseSensitivity  float32 `yaml:"mouse_sensitivity"` // Degrees per pointer count
	RotateStepDegrees float32 `yaml:"rotate_step_degrees"`
}

// RenderConfig holds rasterizer and coprocessor settings.
type RenderConfig struct {
	Strategy       string  `yaml:"strategy"`   // raycast, raymarch or face
	Background     string  `yaml:"background"` // #rrggbb or 0xRRRR
	MarchStep      float32 `yaml:"march_step"`
	Completion     string  `yaml:"completion"`      // interrupt or poll
	RegisterFormat string  `yaml:"register_format"` // float or fixed
	HUD            bool    `yaml:"hud"`
}

// GridConfig holds voxel storage settings.
type GridConfig struct {
	Side           int  `yaml:"side"`
	Sparse         bool `yaml:"sparse"`
	SparseCapacity int  `yaml:"sparse_capacity"`
	MaxRecords     int  `yaml:"max_records"` // 0 = unbounded
}

// SceneConfig holds the scene to load at startup.
type SceneConfig struct {
	Path string `yaml:"path"`
}

// PreviewConfig holds the websocket frame preview settings.
type PreviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// PanelConfig holds LED matrix output settings.
type PanelConfig struct {
	Driver     string `yaml:"driver"`   // spi or terminal
	SPIPort    string `yaml:"spi_port"` // Empty picks the first port
	Width      int    `yaml:"width"`    // LEDs per row
	Height     int    `yaml:"height"`   // Rows
	Serpentine bool   `yaml:"serpentine"`
	FreqKHz    int    `yaml:"freq_khz"`
}

// IRQConfig holds the external completion line.
type IRQConfig struct {
	GPIOPin string `yaml:"gpio_pin"` // Empty disables the line
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DebugConfig holds developer tooling switches.
type DebugConfig struct {
	Statsview     bool   `yaml:"statsview"`
	StatsviewAddr string `yaml:"statsview_addr"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Width:     320,
			Height:    240,
			Scale:     3,
			RefreshHz: 60,
			Backend:   BackendWindow,
			VSync:     true,
		},
		Camera: CameraConfig{
			FOVDegrees:        60,
			FocalLength:       1,
			Position:          Vec{0, 0, 256},
			Look:              Vec{0, 0, -1},
			Up:                Vec{0, 1, 0},
			MoveSpeed:         4,
			MouseSensitivity:  0.2,
			RotateStepDegrees: 30,
		},
		Render: RenderConfig{
			Strategy:       "raycast",
			Background:     "#000000",
			MarchStep:      0.25,
			Completion:     "interrupt",
			RegisterFormat: "float",
			HUD:            false,
		},
		Grid: GridConfig{
			Side:           256,
			Sparse:         true,
			SparseCapacity: 1024,
		},
		Preview: PreviewConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8765",
		},
		Panel: PanelConfig{
			Driver:     "terminal",
			SPIPort:    "",
			Width:      16,
			Height:     16,
			Serpentine: true,
			FreqKHz:    800,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Debug: DebugConfig{
			Statsview:     false,
			StatsviewAddr: "localhost:18066",
		},
	}
}

var (
	validBackends    = []string{BackendWindow, BackendHeadless, BackendPanel}
	validStrategies  = []string{"raycast", "raymarch", "face"}
	validCompletions = []string{"interrupt", "poll"}
	validFormats     = []string{"float", "fixed"}
	validPanels      = []string{"spi", "terminal"}
)

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Display.Width > 0 && c.Display.Height > 0,
		"display: size %dx%d must be positive", c.Display.Width, c.Display.Height)
	check(c.Display.Scale > 0, "display: scale %d must be positive", c.Display.Scale)
	check(c.Display.RefreshHz > 0, "display: refresh_hz %d must be positive", c.Display.RefreshHz)
	check(oneOf(c.Display.Backend, validBackends), "display: unknown backend %q", c.Display.Backend)

	check(c.Camera.FOVDegrees > 0 && c.Camera.FOVDegrees < 180,
		"camera: fov_degrees %g must be in (0, 180)", c.Camera.FOVDegrees)
	check(c.Camera.FocalLength > 0, "camera: focal_length %g must be positive", c.Camera.FocalLength)
	check(c.Camera.Look != Vec{}, "camera: look must be nonzero")
	check(c.Camera.Up != Vec{}, "camera: up must be nonzero")

	check(oneOf(c.Render.Strategy, validStrategies), "render: unknown strategy %q", c.Render.Strategy)
	check(c.Render.MarchStep > 0, "render: march_step %g must be positive", c.Render.MarchStep)
	check(oneOf(c.Render.Completion, validCompletions), "render: unknown completion %q", c.Render.Completion)
	check(oneOf(c.Render.RegisterFormat, validFormats), "render: unknown register_format %q", c.Render.RegisterFormat)

	check(c.Grid.Side > 0 && c.Grid.Side <= 256, "grid: side %d must be in [1, 256]", c.Grid.Side)
	check(c.Grid.MaxRecords >= 0, "grid: max_records %d must not be negative", c.Grid.MaxRecords)

	if c.Display.Backend == BackendPanel {
		check(oneOf(c.Panel.Driver, validPanels), "panel: unknown driver %q", c.Panel.Driver)
		check(c.Panel.Width > 0 && c.Panel.Height > 0,
			"panel: size %dx%d must be positive", c.Panel.Width, c.Panel.Height)
	}
	if c.Preview.Enabled {
		check(c.Preview.Listen != "", "preview: listen address required")
	}

	return errors.Join(errs...)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
