// Package main is the entry point for the voxelray renderer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/config"
	"github.com/Faultbox/voxelray/internal/game"
	"github.com/Faultbox/voxelray/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	// Initialize logger. The terminal is used for keys and the panel
	// outside window mode, so logs go to the file only.
	if cfg.Display.Backend != config.BackendWindow && cfg.Logging.LogFile != "" {
		err = logger.InitWithFileConfig(cfg.Logging.Level, logger.DefaultFileConfig(cfg.Logging.LogFile), false)
	} else {
		err = logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== voxelray ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Debug.Statsview {
		viewer.SetConfiguration(viewer.WithAddr(cfg.Debug.StatsviewAddr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
		logger.Info("statsview available", zap.String("url", "http://"+cfg.Debug.StatsviewAddr+"/debug/statsview"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.Options{MaxFrames: config.MaxFrames()}
	if cfg.Display.Backend != config.BackendWindow {
		opts.Stdin = os.Stdin
	}

	g, err := game.New(cfg, opts)
	if err != nil {
		logger.Error("failed to create session", zap.Error(err))
		os.Exit(1)
	}

	if err := g.Run(ctx); err != nil {
		g.Close()
		logger.Error("session error", zap.Error(err))
		os.Exit(1)
	}
	g.Close()

	logger.Info("voxelray closed normally", zap.Uint64("frames", g.Stats().Frames))
}
