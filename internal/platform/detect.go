package platform

import (
	"strings"
)

// Window managers known to ignore ICCCM aspect hints (mostly tiling WMs).
var aspectIgnoringWMs = []string{
	"i3",
	"sway",
	"bspwm",
	"dwm",
	"awesome",
	"xmonad",
	"qtile",
	"herbstluftwm",
	"spectrwm",
	"leftwm",
}

// NativeRatioLockReliable reports whether the window system's own aspect
// ratio constraint can be trusted for goos under the named window manager.
// Windows chrome breaks the built-in lock, so it always needs interception.
func NativeRatioLockReliable(goos, wmName string) bool {
	if goos == "windows" {
		return false
	}
	wm := strings.ToLower(strings.TrimSpace(wmName))
	for _, name := range aspectIgnoringWMs {
		if wm == name || strings.HasPrefix(wm, name+" ") {
			return false
		}
	}
	return true
}

// Distribution identifies the channel the viewer was shipped through.
type Distribution string

const (
	DistributionStandalone Distribution = "standalone"
	DistributionSteam      Distribution = "steam"
)

// DetectDistribution inspects the environment through getenv. The Steam
// client exports SteamAppId/SteamGameId (and SteamEnv in its runtime) to
// launched games.
func DetectDistribution(getenv func(string) string) Distribution {
	for _, key := range []string{"SteamAppId", "SteamGameId", "SteamEnv"} {
		if strings.TrimSpace(getenv(key)) != "" {
			return DistributionSteam
		}
	}
	return DistributionStandalone
}
