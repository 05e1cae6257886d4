package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jumpres/viewer/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or print configuration",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigPrintCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(flags.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
			return nil
		},
	}
}

func newConfigPrintCmd() *cobra.Command {
	var (
		defaults bool
		explain  string
		paths    bool
	)
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if defaults {
				data, err := yaml.Marshal(config.DefaultConfig())
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
				return nil
			}

			res, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}

			if paths {
				list, err := config.Paths(res.Config)
				if err != nil {
					return err
				}
				for _, p := range list {
					fmt.Fprintln(out, p)
				}
				return nil
			}

			if explain != "" {
				value, src, err := config.Explain(res, explain)
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(value)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "path: %s\n", explain)
				fmt.Fprintf(out, "source: %s\n", formatSource(src))
				fmt.Fprintf(out, "value:\n%s", string(data))
				return nil
			}

			data, err := yaml.Marshal(res.Config)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Print built-in defaults (no files)")
	cmd.Flags().StringVar(&explain, "explain", "", "Explain one value and where it was set (e.g. dashboard.listen)")
	cmd.Flags().BoolVar(&paths, "paths", false, "List every path --explain accepts")
	return cmd
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
