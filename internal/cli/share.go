package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/export"
	"github.com/plsfixthx/annotator/internal/services"
	"github.com/spf13/cobra"
)

func newShareCmd() *cobra.Command {
	var (
		flags  exportFlags
		qrPath string
	)

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Publish an export through the configured share target and print its link",
		Long: `Renders the manifest and publishes the result through SHARE_BACKEND
(local or s3). The link is printed; --qr also writes it as a QR code PNG.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := config.New()
			if len(flags.formats) != 1 {
				return errors.New("share takes exactly one format")
			}
			formats, err := flags.parseFormats()
			if err != nil {
				return err
			}
			store, name, err := flags.session(cfg)
			if err != nil {
				return err
			}
			opts := services.ExportOptions{}
			if formats[0] == export.FormatPNG {
				opts.Page = flags.page
			}
			files, err := services.NewExportService(cfg).Export(ctx, store, formats[0], name, opts)
			if err != nil {
				return err
			}
			f := files[0]
			if len(files) > 1 {
				if f, err = services.Bundle(files, name); err != nil {
					return err
				}
			}

			shares, err := services.NewShareService(cfg)
			if err != nil {
				return err
			}
			shared, err := shares.Share(ctx, f)
			switch {
			case errors.Is(err, services.ErrShareCancelled):
				return nil
			case errors.Is(err, services.ErrShareUnsupported):
				if werr := writeFile(f.Name, f.Data); werr != nil {
					return werr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sharing unavailable, saved %s\n", f.Name)
				return nil
			case err != nil:
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", shared.URL, shared.ExpiresAt.Format("2006-01-02 15:04"))
			if qrPath != "" && len(shared.QRCode) > 0 {
				if err := writeFile(qrPath, shared.QRCode); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd, []string{"pdf"})
	cmd.Flags().StringVar(&qrPath, "qr", "", "write the link as a QR code PNG to this path")

	return cmd
}
