package main

import (
	"context"
	"fmt"

	"github.com/spinnelein/familybook/internal/formatter"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/urfave/cli/v3"
)

// MediaStats prints counts and sizes of imported media from storage or the ledger.
func (r *Runner) MediaStats(ctx context.Context, cmd *cli.Command) error {
	var stats *models.MediaStats
	source := cmd.String("source")

	switch source {
	case "storage":
		store, err := services.NewStorage(ctx, r.config.Storage)
		if err != nil {
			return err
		}
		if stats, err = store.Stats(ctx); err != nil {
			return fmt.Errorf("failed to read storage stats: %w", err)
		}
	case "ledger":
		db, ledger, err := r.openLedger()
		if err != nil {
			return err
		}
		defer db.Close()
		if stats, err = ledger.Stats(ctx); err != nil {
			return fmt.Errorf("failed to read ledger stats: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown source %q (use storage or ledger)", shared.ErrInvalidArgument, source)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader(fmt.Sprintf("Imported Media (%s)", source))
	r.writePlain("Files:  %d (%s)\n", stats.TotalFiles, formatter.FormatBytes(stats.TotalSize))
	r.writePlain("Images: %d (%s)\n", stats.Images.Count, formatter.FormatBytes(stats.Images.Size))
	r.writePlain("Videos: %d (%s)\n", stats.Videos.Count, formatter.FormatBytes(stats.Videos.Size))
	return nil
}

// MediaList lists ledger rows, newest first, or exports them to a file.
func (r *Runner) MediaList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if kind := cmd.String("kind"); kind != "" {
		switch models.MediaKind(kind) {
		case models.KindImage, models.KindVideo:
			criteria["kind"] = models.MediaKind(kind)
		default:
			return fmt.Errorf("%w: unknown kind %q (use image or video)", shared.ErrInvalidArgument, kind)
		}
	}
	if limit := int(cmd.Int("limit")); limit > 0 {
		criteria["limit"] = limit
	}

	db, ledger, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	media, err := ledger.List(ctx, criteria)
	if err != nil {
		return fmt.Errorf("failed to list media: %w", err)
	}

	var stats *models.MediaStats
	if format == formatter.Markdown {
		if stats, err = ledger.Stats(ctx); err != nil {
			return fmt.Errorf("failed to read ledger stats: %w", err)
		}
	}

	if path := cmd.String("output"); path != "" || cmd.Bool("save") {
		written, err := formatter.WriteExport(media, stats, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("media exported", "path", written, "rows", len(media))
		r.writePlain("✓ Exported %d item(s) to %s\n", len(media), written)
		return nil
	}

	data, err := formatter.Export(media, stats, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
