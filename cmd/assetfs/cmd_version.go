package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/jackfish212/assetfs"
)

var versionJSON bool

func versionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "version",
		Short: "Version information",
		RunE:  cmdVersion,
	}
	c.Flags().BoolVar(&versionJSON, "json", false, "Print as JSON")
	return c
}

func cmdVersion(cmd *cobra.Command, _ []string) error {
	info := assetfs.GetVersionInfo()
	if !versionJSON {
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	}
	out, err := sonic.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
