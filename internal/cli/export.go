package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plsfixthx/annotator/internal/config"
	"github.com/plsfixthx/annotator/internal/export"
	"github.com/plsfixthx/annotator/internal/services"
	"github.com/spf13/cobra"
)

type exportFlags struct {
	manifest string
	formats  []string
	name     string
	out      string
	page     int
}

func (f *exportFlags) register(cmd *cobra.Command, defaultFormats []string) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "YAML manifest listing images and annotations (required)")
	cmd.Flags().StringSliceVarP(&f.formats, "format", "f", defaultFormats, "export formats: png, pdf, html")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "base file name (defaults to the manifest name)")
	cmd.Flags().IntVar(&f.page, "page", 0, "export only this 1-based page (png only)")
	_ = cmd.MarkFlagRequired("manifest")
}

// session loads the manifest into a fresh store.
func (f *exportFlags) session(cfg *config.Config) (*services.AnnotationStore, string, error) {
	m, err := LoadManifest(f.manifest)
	if err != nil {
		return nil, "", err
	}
	store := services.NewAnnotationStore()
	if err := m.Populate(services.NewImageService(cfg), store); err != nil {
		return nil, "", err
	}
	name := f.name
	if name == "" {
		name = m.Name
	}
	return store, name, nil
}

func (f *exportFlags) parseFormats() ([]export.Format, error) {
	var out []export.Format
	for _, s := range f.formats {
		format, err := export.ParseFormat(s)
		if err != nil {
			return nil, err
		}
		out = append(out, format)
	}
	return out, nil
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a manifest as PNG, PDF and/or HTML files",
		Example: `  # One PDF report
  plsfix export --manifest session.yaml --format pdf --name report --out ./exports

  # Every format at once
  plsfix export -m session.yaml -f png,pdf,html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd, config.New(), &flags)
		},
	}
	flags.register(cmd, []string{"pdf"})
	cmd.Flags().StringVarP(&flags.out, "out", "o", ".", "output directory")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, flags *exportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formats, err := flags.parseFormats()
	if err != nil {
		return err
	}
	store, name, err := flags.session(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(flags.out, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	exports := services.NewExportService(cfg)
	for _, format := range formats {
		opts := services.ExportOptions{}
		if format == export.FormatPNG {
			opts.Page = flags.page
		}
		files, err := exports.Export(ctx, store, format, name, opts)
		if err != nil {
			return fmt.Errorf("%s export: %w", format, err)
		}
		// Write only once every file of the format rendered.
		for _, f := range files {
			path := filepath.Join(flags.out, f.Name)
			if err := writeFile(path, f.Data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", strings.ToUpper(string(format)), path)
		}
	}
	return nil
}

// writeFile writes data next to path as a .part file and renames it into
// place, so a failed write never leaves a truncated export behind.
func writeFile(path string, data []byte) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
