package main

import (
	"github.com/jumpres/viewer/internal/config"
	"github.com/jumpres/viewer/internal/platform"
	"github.com/jumpres/viewer/internal/viewer"
)

// nativeLockReliable applies the ratio_lock override to the detected
// capability.
func nativeLockReliable(mode config.RatioLockMode, goos, wmName string) bool {
	switch mode {
	case config.RatioLockNative:
		return true
	case config.RatioLockIntercept:
		return false
	default:
		return platform.NativeRatioLockReliable(goos, wmName)
	}
}

// isPlatformVariant applies the distribution override to the detected
// channel.
func isPlatformVariant(distribution string, getenv func(string) string) bool {
	switch distribution {
	case config.DistributionSteam:
		return true
	case config.DistributionStandalone:
		return false
	default:
		return platform.DetectDistribution(getenv) == platform.DistributionSteam
	}
}

func viewerOptions(cfg *config.Config) viewer.Options {
	return viewer.Options{
		Width:           cfg.Width,
		Height:          cfg.Height,
		BackgroundColor: cfg.BackgroundColor,
		Title:           cfg.Title,
		URL:             cfg.URL,
		Fullscreen:      cfg.Fullscreen,
		AlwaysOnTop:     cfg.KeepOnTop,
		ZoomLevel:       cfg.ZoomLevel,
	}
}
