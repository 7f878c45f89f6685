package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/config"
)

func configCmd(load configLoader) *cobra.Command {
	var (
		write    string
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after editstream.json and EDITSTREAM_*
overrides were applied. Credentials are never printed.

Examples:
  editstream config
  editstream config --defaults --write editstream.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if !defaults {
				c, err := load()
				if err != nil {
					return err
				}
				cfg = c
			}
			if write != "" {
				if err := cfg.SaveTo(write); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Wrote %s", write)
				return nil
			}
			data, err := cfg.MarshalIndent()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&write, "write", "w", "", "Write the configuration to this path instead of printing it")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Ignore files and environment and use the defaults")

	return cmd
}
