package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"google.golang.org/api/iterator"
)

// Storage stores imported media files under flat names.
type Storage interface {
	// Put writes data under name and returns the public URL of the stored file.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Open returns the stored file, or an error wrapping [shared.ErrNotFound].
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Stats summarizes stored media by kind.
	Stats(ctx context.Context) (*models.MediaStats, error)
}

// NewStorage builds the backend selected by cfg.Backend ("local" or "gcs").
func NewStorage(ctx context.Context, cfg shared.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("%w: storage.gcs_bucket is required for the gcs backend", shared.ErrInvalidConfig)
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create gcs client: %w", err)
		}
		return NewGCSStorage(client, cfg.GCSBucket, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// ValidateMediaName rejects names that are not a single plain path element.
func ValidateMediaName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid media name %q", shared.ErrInvalidArgument, name)
	}
	return nil
}

// kindOf derives the media kind from a stored name's prefix or extension.
func kindOf(name string) (models.MediaKind, bool) {
	switch {
	case strings.HasPrefix(name, models.KindVideo.Prefix()):
		return models.KindVideo, true
	case strings.HasPrefix(name, models.KindImage.Prefix()):
		return models.KindImage, true
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range videoExtensions {
		if e == ext {
			return models.KindVideo, true
		}
	}
	for _, e := range imageExtensions {
		if e == ext {
			return models.KindImage, true
		}
	}
	return "", false
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}

// LocalStorage writes files into a directory on disk.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates dir if needed. Public URLs are baseURL + "/" + name.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: storage.upload_dir is empty", shared.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the upload directory.
func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := ValidateMediaName(name); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(s.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return joinURL(s.baseURL, name), nil
}

func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateMediaName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

func (s *LocalStorage) Stats(_ context.Context) (*models.MediaStats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	stats := &models.MediaStats{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := kindOf(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Observe(kind, info.Size())
	}
	return stats, nil
}

// GCSStorage writes files into a Cloud Storage bucket.
type GCSStorage struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStorage uses client for bucket. An empty baseURL uses the public storage.googleapis.com URL.
func NewGCSStorage(client *storage.Client, bucket, baseURL string) *GCSStorage {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStorage{client: client, bucket: bucket, baseURL: baseURL}
}

func (s *GCSStorage) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ValidateMediaName(name); err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return joinURL(s.baseURL, name), nil
}

func (s *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateMediaName(name); err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return r, nil
}

func (s *GCSStorage) Stats(ctx context.Context) (*models.MediaStats, error) {
	stats := &models.MediaStats{}
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if kind, ok := kindOf(attrs.Name); ok {
			stats.Observe(kind, attrs.Size)
		}
	}
	return stats, nil
}
