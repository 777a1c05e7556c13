package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs"
	"github.com/jackfish212/assetfs/assets"
	"github.com/jackfish212/assetfs/capability"
	"github.com/jackfish212/assetfs/handles"
)

var (
	mapJSON   bool
	mapIgnore []string
	mapSniff  bool
)

func mapCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "map PATH",
		Short: "Print the asset map of a directory or ZIP archive",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdMap,
	}
	c.Flags().BoolVar(&mapJSON, "json", false, "Print as JSON")
	c.Flags().StringSliceVar(&mapIgnore, "ignore", nil, "Glob patterns to leave out, e.g. '.git/**'")
	c.Flags().BoolVar(&mapSniff, "sniff", false, "Detect content types of unknown extensions")
	return c
}

// cmdMap mounts PATH in a throwaway manager, so the cached handles of the
// server are left alone.
func cmdMap(cmd *cobra.Command, args []string) error {
	opts := []assets.Option{assets.WithIgnore(mapIgnore...)}
	if mapSniff {
		opts = append(opts, assets.WithContentSniffing())
	}
	builder, err := assets.NewBuilder(assets.NewRegistry(""), opts...)
	if err != nil {
		return err
	}
	m := assetfs.New(
		assetfs.WithAssetBuilder(builder),
		assetfs.WithCapabilities(capability.Static(capability.Capabilities{Directory: true, Archive: true})),
		assetfs.WithLogger(zap.NewNop()),
	)
	defer m.Close() // nolint:errcheck

	if err := mountPath(cmd, m, args[0]); err != nil {
		return err
	}
	return printMap(cmd.OutOrStdout(), m.Assets(), mapJSON)
}

func mountPath(cmd *cobra.Command, m *assetfs.Manager, p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		dir, err := handles.OpenDirectory(p)
		if err != nil {
			return err
		}
		return m.MountDirectory(cmd.Context(), dir)
	}
	f, err := handles.OpenFile(p)
	if err != nil {
		return err
	}
	return m.MountArchive(cmd.Context(), assetfs.ArchiveSource{Handle: f})
}

func printMap(w io.Writer, amap *assets.Map, asJSON bool) error {
	if asJSON {
		out, err := sonic.MarshalIndent(amap.Entries(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTYPE\tSIZE")
	for _, e := range amap.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Path, e.MimeType, e.Size)
	}
	return tw.Flush()
}
