package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/kurve/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration kurve would use, after the config file and
--speed are applied. Redirect it to a file to start customizing:

  kurve config > ~/.kurve/configs/kurve.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
