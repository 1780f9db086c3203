package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"borrowck/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	info := version.Get()
	switch strings.ToLower(format) {
	case "pretty":
		fmt.Fprint(cmd.OutOrStdout(), info.Text())
		return nil
	case "json":
		data, err := info.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}
