package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"onefile/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config is needed to print the version.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(versionFormat)
		if err != nil {
			return err
		}
		if format == FormatJSON {
			return writeResponse(cmd.OutOrStdout(), version.Get(), format)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		return err
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "output format (human or json)")
	rootCmd.AddCommand(versionCmd)
}
