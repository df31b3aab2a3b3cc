package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository"
	"github.com/wadjakorntonsri/lnkzip/pkg/config"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/services"
	"github.com/wadjakorntonsri/lnkzip/pkg/logger"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

var cfg *config.Config

func main() {
	cfg = config.Load()
	logger.Init(cfg.LogLevel, false)

	root := &cobra.Command{
		Use:           "lnkzip",
		Short:         "Operator tooling for the link and QR code store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "database URL (defaults to DATABASE_URL)")

	root.AddCommand(exportCmd(), importCmd(), shortenCmd(), qrCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func openRepo(ctx context.Context) (ports.Repository, error) {
	return repository.Open(ctx, cfg.DatabaseURL)
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every short link as JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			links, err := repo.DumpLinks(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(links)
		},
	}
}

func importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load short links from a JSON export, skipping codes that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			var links []domain.ShortLink
			if err := json.NewDecoder(f).Decode(&links); err != nil {
				return fmt.Errorf("decode failed: %w", err)
			}

			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			count := 0
			for i := range links {
				l := links[i]
				existing, err := repo.GetLinkByShortCode(ctx, l.ShortCode)
				if err != nil {
					return err
				}
				if existing != nil {
					log.Info().Str("short_code", l.ShortCode).Msg("skipping existing code")
					continue
				}
				if err := repo.CreateLink(ctx, &l); err != nil {
					log.Warn().Err(err).Str("short_code", l.ShortCode).Msg("import failed")
					continue
				}
				count++
			}
			log.Info().Int("count", count).Msg("import finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func shortenCmd() *cobra.Command {
	var alias, title string
	cmd := &cobra.Command{
		Use:   "shorten <url>",
		Short: "Create a short link and print its canonical URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			links := services.NewLinkService(repo, cfg.BaseURL, cfg.TrackingTimeout)
			_, shortURL, err := links.Shorten(cmd.Context(), ports.ShortenInput{
				URL:         args[0],
				CustomAlias: alias,
				Title:       title,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shortURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "custom alias")
	cmd.Flags().StringVar(&title, "title", "", "link title")
	return cmd
}

func qrCmd() *cobra.Command {
	qr := &cobra.Command{
		Use:   "qr",
		Short: "QR code tools",
	}

	var in ports.RenderInput
	var qrType, out string
	render := &cobra.Command{
		Use:   "render <content>",
		Short: "Render a QR code image to a file without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.QRType = domain.QRType(qrType)
			in.Content = args[0]

			// Rendering never touches the store.
			svc := services.NewQRService(nil, services.NewLinkService(nil, cfg.BaseURL, cfg.TrackingTimeout))
			data, _, err := svc.Render(cmd.Context(), in)
			if err != nil {
				return err
			}
			if out == "" {
				out = "qr-code." + in.Format
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			log.Info().Str("file", out).Int("bytes", len(data)).Msg("qr code written")
			return nil
		},
	}
	render.Flags().StringVar(&qrType, "type", string(domain.QRTypeURL), "qr type")
	render.Flags().StringVar(&in.QRColor, "color", domain.DefaultQRColor, "foreground color")
	render.Flags().StringVar(&in.BGColor, "bg", domain.DefaultBGColor, "background color")
	render.Flags().IntVar(&in.Size, "size", domain.DefaultSize, "image size in pixels")
	render.Flags().StringVar(&in.Format, "format", "png", "png, jpg or svg")
	render.Flags().StringVarP(&out, "out", "o", "", "output file (default qr-code.<format>)")

	qr.AddCommand(render)
	return qr
}
