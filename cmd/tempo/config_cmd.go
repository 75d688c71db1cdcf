package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/myorg/tempo/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  "Generate, inspect and validate tempo configuration files (YAML or TOML).",
}

var configInitCfg struct {
	Force bool
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Generate example configuration file",
	Long: `Write the default configuration to a file, or to stdout without one.
The format follows the file extension: .toml writes TOML, anything else YAML.

Examples:
  tempo config init > tempo.yaml
  tempo config init tempo.toml
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long: `Print the configuration after defaults, the config file, the dotenv file
and TEMPO_* / PG* environment overrides are applied. The database password
is masked.

Examples:
  tempo config show
  tempo --config tempo.toml config show
`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVarP(&configInitCfg.Force, "force", "f", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfigWithDefaults()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	data, err := cfg.Marshal(path)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}

	if path == "" {
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	}
	if _, err := os.Stat(path); err == nil && !configInitCfg.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := *appCfg
	if cfg.Database.Password != "" {
		cfg.Database.Password = "********"
	}
	data, err := cfg.Marshal(rootCfg.ConfigFile)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (profile %q, clock %s)\n",
		args[0], cfg.Timeline.Profile, cfg.Driver.Clock)
	return nil
}
