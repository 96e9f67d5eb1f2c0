package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sammcj/autobatch/config"
	"github.com/sammcj/autobatch/styles"
	"github.com/sammcj/autobatch/utils"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage autobatch configuration.

Configuration is loaded from ~/.config/autobatch/config.json (or --config),
overridden by AUTOBATCH_* environment variables, for example
AUTOBATCH_FRACTION=0.8 or AUTOBATCH_DEVICE=cuda:1.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showConfig(cmd.OutOrStdout())
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:               "init",
		Short:             "Write a default configuration file",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipSetup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd.OutOrStdout(), a.configPath(), force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	path := &cobra.Command{
		Use:               "path",
		Short:             "Show the configuration file path",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipSetup,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.configPath())
		},
	}

	cmd.AddCommand(show, initCmd, path)
	return cmd
}

func (a *app) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return utils.GetConfigPath()
}

func (a *app) showConfig(out io.Writer) error {
	fmt.Fprintf(out, "Config file: %s\n\n", a.configPath())

	data, err := json.MarshalIndent(a.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "\n"+styles.HeaderStyle().Render("Environment Overrides:"))
	overrides := envOverrides(os.Environ())
	if len(overrides) == 0 {
		fmt.Fprintln(out, "(none)")
	}
	for _, kv := range overrides {
		fmt.Fprintln(out, kv)
	}
	return nil
}

// envOverrides returns the AUTOBATCH_* variables in env, sorted.
func envOverrides(env []string) []string {
	var out []string
	for _, kv := range env {
		if strings.HasPrefix(kv, "AUTOBATCH_") {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

func initConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintln(out, styles.WarningStyle().Render("Config file already exists: "+path+" (use --force to overwrite)"))
		return nil
	}
	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintln(out, styles.SuccessStyle().Render("Wrote default config to "+path))
	return nil
}
