package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/metrics"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultMaxDownloadBytes caps a single media download.
const DefaultMaxDownloadBytes = 200 << 20

// MediaRecorder records imported files. [repositories.MediaRepository] implements it.
type MediaRecorder interface {
	Create(ctx context.Context, m *models.ImportedMedia) error
}

// ImportProgress is called after each item with its 1-based position and outcome.
type ImportProgress func(done, total int, item models.PickedMediaItem, err error)

// Importer downloads picked items, optimizes images and writes them to [Storage].
type Importer struct {
	storage    Storage
	ledger     MediaRecorder
	optimizer  Optimizer
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBytes   int64
	logger     *log.Logger
}

// NewImporter creates an importer. ledger may be nil. A nil httpClient uses a client with a
// 5 minute timeout.
func NewImporter(store Storage, ledger MediaRecorder, cfg shared.ImportConfig, httpClient *http.Client, logger *log.Logger) *Importer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	maxBytes := cfg.MaxDownloadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	limit := rate.Inf
	if cfg.DownloadsPerSecond > 0 {
		limit = rate.Limit(cfg.DownloadsPerSecond)
	}

	return &Importer{
		storage:    store,
		ledger:     ledger,
		optimizer:  NewOptimizer(cfg.MaxDimension, cfg.JPEGQuality),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxBytes:   maxBytes,
		logger:     shared.WithLogger(logger, "component", "importer"),
	}
}

// Import downloads each item with the given Authorization header value and stores it.
//
// Failed items are logged and skipped; the result's Count is the number of items requested
// minus the failures. Importing the same remote item twice produces two stored files.
func (im *Importer) Import(ctx context.Context, items []models.PickedMediaItem, authHeader string, progress ImportProgress) *models.ImportResult {
	result := &models.ImportResult{Requested: len(items)}

	for i, item := range items {
		var err error
		if err = ctx.Err(); err == nil {
			var m *models.ImportedMedia
			if m, err = im.importOne(ctx, item, authHeader); err == nil {
				result.Add(*m)
			}
		}

		if err != nil {
			result.Fail(item.ID, item.Filename(), err)
			metrics.ImportedItems.WithLabelValues("unknown", "failed").Inc()
			im.logger.Warn("skipping media item", "id", item.ID, "filename", item.Filename(), "error", err)
		}
		if progress != nil {
			progress(i+1, len(items), item, err)
		}
	}

	im.logger.Info("import finished",
		"requested", result.Requested,
		"imported", result.Count,
		"original_bytes", result.TotalOriginalSize,
		"processed_bytes", result.TotalProcessedSize,
	)
	return result
}

func (im *Importer) importOne(ctx context.Context, item models.PickedMediaItem, authHeader string) (*models.ImportedMedia, error) {
	if item.BaseURL() == "" {
		return nil, fmt.Errorf("%w: item has no base url", shared.ErrImportItemFailed)
	}

	data, err := im.download(ctx, VariantURL(item.BaseURL(), item.MimeType()), authHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImportItemFailed, err)
	}

	mimeType := ResolveMime(item.MimeType(), data)
	kind, ext := ClassifyMedia(mimeType)

	processed := data
	if kind == models.KindImage {
		var optErr error
		if processed, optErr = im.optimizer.Optimize(data, ext); optErr != nil {
			im.logger.Warn("keeping original image", "id", item.ID, "error", optErr)
		}
	}

	name := NewMediaFilename(kind, ext)
	url, err := im.storage.Put(ctx, name, mimeType, processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImportItemFailed, err)
	}

	m := &models.ImportedMedia{
		Filename:      name,
		OriginalName:  item.Filename(),
		RemoteID:      item.ID,
		Kind:          kind,
		Extension:     ext,
		MimeType:      mimeType,
		URL:           url,
		OriginalSize:  int64(len(data)),
		ProcessedSize: int64(len(processed)),
		CreatedAt:     time.Now().UTC(),
	}

	if im.ledger != nil {
		if err := im.ledger.Create(ctx, m); err != nil {
			im.logger.Error("failed to record imported media", "filename", name, "error", err)
		}
	}

	metrics.ImportedItems.WithLabelValues(string(kind), "imported").Inc()
	metrics.ImportedBytes.WithLabelValues("original").Add(float64(m.OriginalSize))
	metrics.ImportedBytes.WithLabelValues("processed").Add(float64(m.ProcessedSize))
	im.logger.Info("imported media", "filename", name, "original", m.OriginalName, "bytes", m.ProcessedSize)
	return m, nil
}

func (im *Importer) download(ctx context.Context, url, authHeader string) ([]byte, error) {
	if err := im.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, im.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > im.maxBytes {
		return nil, fmt.Errorf("download exceeds %d bytes", im.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download was empty")
	}
	return data, nil
}
