package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jumpres/viewer/internal/bridge"
	"github.com/jumpres/viewer/internal/ipc"
)

func newStatusCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running viewer's window status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ipc.NewClient().GetStatus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut || !isTerminal(out) {
				return writeStatusJSON(out, status)
			}
			return writeStatusTable(out, status)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON even on a terminal")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeStatusJSON(w io.Writer, status *ipc.StatusData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

func writeStatusTable(w io.Writer, status *ipc.StatusData) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "window:\t%s\n", windowSummary(status))
	fmt.Fprintf(tw, "title:\t%s\n", status.Title)
	fmt.Fprintf(tw, "fullscreen:\t%v\n", status.State.Fullscreen)
	fmt.Fprintf(tw, "on_top:\t%v\n", status.State.AlwaysOnTop)
	fmt.Fprintf(tw, "zoom_level:\t%g\n", status.State.ZoomLevel)
	fmt.Fprintf(tw, "focused:\t%v\n", status.State.Focused)
	fmt.Fprintf(tw, "ratio_lock:\t%s\n", status.RatioLock)
	if status.Insets != nil {
		fmt.Fprintf(tw, "insets:\t%dx%d\n", status.Insets.Width, status.Insets.Height)
	}
	fmt.Fprintf(tw, "platform_variant:\t%v\n", status.PlatformVariant)
	fmt.Fprintf(tw, "uptime_seconds:\t%d\n", status.UptimeSeconds)
	if status.Version != "" {
		fmt.Fprintf(tw, "version:\t%s\n", status.Version)
	}
	return tw.Flush()
}

func windowSummary(status *ipc.StatusData) string {
	switch {
	case !status.HasWindow:
		return "none"
	case !status.Ready:
		return "loading"
	default:
		return "ready"
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ipc.NewClient().Invoke(bridge.OpReload, nil)
			return err
		},
	}
}

func newFullscreenCmd() *cobra.Command {
	return newToggleCmd("fullscreen", "Enter or leave fullscreen", bridge.OpSetFullscreen)
}

func newOnTopCmd() *cobra.Command {
	return newToggleCmd("on-top", "Keep the window above others, or release it", bridge.OpSetOnTop)
}

func newToggleCmd(use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:       use + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			_, err = ipc.NewClient().Invoke(op, on)
			return err
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func newZoomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zoom <level>",
		Short: "Set the page zoom level (0 is 100%, each step scales by 1.2)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid zoom level %q: %w", args[0], err)
			}
			_, err = ipc.NewClient().Invoke(bridge.OpSetZoom, level)
			return err
		},
	}
}

func newFocusedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focused",
		Short: "Print whether the viewer window has focus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			focused, err := ipc.NewClient().InvokeBool(bridge.OpIsFocused)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), focused)
			return nil
		},
	}
}
