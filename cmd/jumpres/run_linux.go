//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/config"
	"github.com/jumpres/viewer/internal/dashboard"
	"github.com/jumpres/viewer/internal/hotkeys"
	"github.com/jumpres/viewer/internal/ipc"
	"github.com/jumpres/viewer/internal/platform"
	"github.com/jumpres/viewer/internal/runtimepath"
	"github.com/jumpres/viewer/internal/userstyles"
	"github.com/jumpres/viewer/internal/viewer"
	"github.com/jumpres/viewer/internal/x11"
)

// shutdownGrace bounds how long a signal waits for the browser to close
// before the event loop is stopped anyway.
const shutdownGrace = 6 * time.Second

func runViewer(cfg *config.Config, flags rootFlags, logger *slog.Logger) error {
	conn, err := x11.NewConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	defer conn.Close()

	wmName, err := conn.WindowManagerName()
	if err != nil {
		logger.Warn("window manager unknown", "error", err)
	}
	nativeReliable := nativeLockReliable(cfg.RatioLock, runtime.GOOS, wmName)
	variant := isPlatformVariant(cfg.Distribution, os.Getenv)
	logger.Info("starting JumPres",
		"version", version,
		"wm", wmName,
		"native_ratio_lock", nativeReliable,
		"platform_variant", variant,
	)

	profileDir, err := runtimepath.ProfileDir()
	if err != nil {
		return err
	}

	sys := platform.NewX11System(conn, platform.X11Config{
		Browser:          cfg.Browser,
		ProfileDir:       profileDir,
		HardwareDecoding: cfg.HardwareDecoding,
		DebugGPU:         flags.debugGPU,
		EnableDevTools:   flags.enableDevTools,
		ExtraArgs:        cfg.BrowserArgs,
		WindowTimeout:    cfg.WindowTimeout(),
		ReadyTimeout:     cfg.ReadyTimeout(),
	}, logger)

	ctrl := viewer.NewController(sys, nativeReliable, logger)
	br := bridge.New(ctrl, variant, logger)
	sys.SetBindingHandler(br.Invoke)
	ctrl.OnQuit(conn.Quit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	createCtx, stopCreate := context.WithCancel(ctx)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			stopCreate()
			if err := ctrl.Close(); err != nil {
				logger.Warn("failed to close window", "error", err)
			}
			select {
			case <-time.After(shutdownGrace):
				conn.Quit()
			case <-ctx.Done():
			}
		case <-ctx.Done():
		}
	}()

	err = ctrl.Create(createCtx, viewerOptions(cfg))
	stopCreate()
	if err != nil {
		return err
	}

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return err
	}
	ipcServer, err := ipc.NewServer(ipc.ServerConfig{
		SocketPath:      socketPath,
		Bridge:          br,
		Status:          ctrl,
		PlatformVariant: variant,
		Version:         version,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	if err := ipcServer.Start(); err != nil {
		logger.Warn("control socket unavailable", "error", err)
	} else {
		defer ipcServer.Stop()
	}

	if cfg.Dashboard.Enabled {
		dash, err := dashboard.NewServer(dashboard.Config{
			Listen:   cfg.Dashboard.Listen,
			Dir:      cfg.Dashboard.Dir,
			Dispatch: br,
			Logger:   logger,
		})
		if err == nil {
			err = dash.Start()
		}
		if err != nil {
			logger.Warn("dashboard unavailable", "error", err)
		} else {
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer stopCancel()
				_ = dash.Stop(stopCtx)
			}()
		}
	}

	if cfg.UserstylesDir != "" {
		watcher := userstyles.NewWatcher(cfg.UserstylesDir, ctrl, logger)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("userstyles disabled", "error", err)
			}
		}()
	}

	if cfg.Hotkeys {
		if win, ok := sys.ActiveWindow(); ok {
			handler := hotkeys.NewHandler(conn.XUtil, br, ctrl, logger)
			if err := handler.Register(win, hotkeys.DefaultBindings); err != nil {
				logger.Warn("hotkeys disabled", "error", err)
			}
		}
	}

	logger.Debug("entering event loop")
	conn.EventLoop()
	logger.Info("JumPres exited")
	return nil
}
