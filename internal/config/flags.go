package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagWidth    = flag.Int("width", 0, "Framebuffer width")
	flagHeight   = flag.Int("height", 0, "Framebuffer height")
	flagStrategy = flag.String("strategy", "", "Rasterizer: raycast, raymarch or face")
	flagScene    = flag.String("scene", "", "Scene file to load")
	flagBackend  = flag.String("backend", "", "Display backend: window, headless or panel")
	flagHeadless = flag.Bool("headless", false, "Run without a window")
	flagFrames   = flag.Int("frames", 0, "Stop after this many frames (0 = run until quit)")
	flagWrite    = flag.String("write-config", "", "Write the effective config to this path and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// MaxFrames returns the frame limit given via --frames.
func MaxFrames() int {
	return *flagFrames
}

// WriteConfigPath returns the destination given via --write-config.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Render.HUD = true
	}
	if *flagWidth > 0 {
		cfg.Display.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Display.Height = *flagHeight
	}
	if *flagStrategy != "" {
		cfg.Render.Strategy = *flagStrategy
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagBackend != "" {
		cfg.Display.Backend = *flagBackend
	}
	if *flagHeadless {
		cfg.Display.Backend = BackendHeadless
	}
}
