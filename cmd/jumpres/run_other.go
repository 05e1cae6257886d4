//go:build !linux

package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/jumpres/viewer/internal/config"
)

func runViewer(_ *config.Config, _ rootFlags, _ *slog.Logger) error {
	return fmt.Errorf("the viewer window needs an X11 display; %s is not supported", runtime.GOOS)
}
