package server

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
)

// StatsSource reports totals for imported media. [services.Storage] and
// [repositories.MediaRepository] implement it.
type StatsSource interface {
	Stats(ctx context.Context) (*models.MediaStats, error)
}

// AuthStatus reports whether a credential is stored.
type AuthStatus interface {
	Authenticated() bool
}

type healthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
}

// FilesHandler serves imported files, media statistics and the health check.
type FilesHandler struct {
	storage services.Storage
	ledger  StatsSource
	auth    AuthStatus
	logger  *log.Logger
}

// NewFilesHandler creates a FilesHandler. ledger may be nil, in which case
// /media/stats?source=ledger reports storage totals.
func NewFilesHandler(storage services.Storage, ledger StatsSource, auth AuthStatus, logger *log.Logger) *FilesHandler {
	return &FilesHandler{
		storage: storage,
		ledger:  ledger,
		auth:    auth,
		logger:  shared.WithLogger(logger, "component", "files"),
	}
}

func (h *FilesHandler) Routes() []string {
	return []string{"GET /uploads/{name}", "GET /media/stats", "GET /healthz"}
}

func (h *FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /uploads/{name}":
		h.serveFile(w, r)
	case "GET /media/stats":
		h.stats(w, r)
	case "GET /healthz":
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Authenticated: h.auth != nil && h.auth.Authenticated()})
	default:
		http.NotFound(w, r)
	}
}

func (h *FilesHandler) serveFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := services.ValidateMediaName(name); err != nil {
		http.NotFound(w, r)
		return
	}

	rc, err := h.storage.Open(r.Context(), name)
	if errors.Is(err, shared.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("failed to open media", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	// Seekable files get Range and conditional request handling so videos can stream.
	if rs, ok := rc.(io.ReadSeeker); ok {
		var modTime time.Time
		if st, ok := rc.(interface{ Stat() (fs.FileInfo, error) }); ok {
			if info, err := st.Stat(); err == nil {
				modTime = info.ModTime()
			}
		}
		http.ServeContent(w, r, name, modTime, rs)
		return
	}

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream media", "name", name, "error", err)
	}
}

func (h *FilesHandler) stats(w http.ResponseWriter, r *http.Request) {
	var source StatsSource = h.storage
	if r.URL.Query().Get("source") == "ledger" && h.ledger != nil {
		source = h.ledger
	}

	stats, err := source.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute media stats", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
