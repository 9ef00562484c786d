package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/codeimpact/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CodeImpact configuration",
	Long:  `View, validate and initialize CodeImpact configuration settings.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to path
(default: .codeimpact/config.yaml). The Neo4j password is never written;
set NEO4J_PASSWORD in the environment or a .env file instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every configuration section",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(".codeimpact", "config.yaml")
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Neo4j.Password != "" {
		shown.Neo4j.Password = "********"
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(&shown); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	res := cfg.Validate(config.ValidationContextAll)
	if res.HasErrors() {
		return res.Err()
	}

	w := cmd.OutOrStdout()
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warn)
	}
	fmt.Fprintf(w, "✅ Configuration is valid\n")
	return nil
}
