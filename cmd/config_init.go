package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if !initForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		defaults := config.Config{
			Scrape: config.ScrapeConfig{
				DelayMS:   1500,
				Retries:   2,
				Enrich:    true,
				Headless:  true,
				Region:    "US",
				UserAgent: "prospect-cli",
			},
			Store:  config.StoreConfig{Path: "leads.db"},
			Export: config.ExportConfig{Path: "leads.csv"},
			Log:    config.LogConfig{Level: "info", Format: "json"},
		}

		data, err := yaml.Marshal(defaults)
		if err != nil {
			return eris.Wrap(err, "marshal defaults")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}

		cmd.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
