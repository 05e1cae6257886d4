package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jumpres/viewer/internal/config"
)

var version = "1.0.0"

type rootFlags struct {
	configPath     string
	debugGPU       bool
	enableDevTools bool
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:           "jumpres",
	Short:         "JumPres Viewer - a 16:9 kiosk window for the JumPres message board",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig(flags.configPath)
		if err != nil {
			return err
		}
		cfg := res.Config

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		}))
		slog.SetDefault(logger)

		for _, file := range res.Files {
			logger.Debug("config loaded", "file", file)
		}
		return runViewer(cfg, flags, logger)
	},
}

func init() {
	rootCmd.SetVersionTemplate("JumPres {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Config file path (default: ~/.config/jumpres/config.yaml)")
	rootCmd.Flags().BoolVar(&flags.debugGPU, "debug-gpu", false,
		"Show the browser's GPU diagnostics page instead of the configured URL")
	rootCmd.Flags().BoolVar(&flags.enableDevTools, "enable-devtools", false,
		"Open developer tools next to the page")

	rootCmd.AddCommand(
		newStatusCmd(),
		newReloadCmd(),
		newFullscreenCmd(),
		newOnTopCmd(),
		newZoomCmd(),
		newFocusedCmd(),
		newConfigCmd(),
		newMCPCmd(),
	)
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
