package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/spinnelein/familybook/internal/tasks"
)

const maxImportRequestBytes = 1 << 20

type createSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	PickerURI string `json:"pickerUri"`
}

type pollResponse struct {
	Success   bool   `json:"success"`
	Completed bool   `json:"completed"`
	State     string `json:"state"`
}

type itemsResponse struct {
	Success       bool                     `json:"success"`
	Completed     bool                     `json:"completed"`
	State         string                   `json:"state,omitempty"`
	SelectedItems []models.PickedMediaItem `json:"selectedItems,omitempty"`
	Count         int                      `json:"count"`
}

type importRequest struct {
	SelectedItems []models.PickedMediaItem `json:"selectedItems"`
}

type importResponse struct {
	Success            bool                   `json:"success"`
	Media              []models.ImportedMedia `json:"media"`
	Count              int                    `json:"count"`
	TotalOriginalSize  int64                  `json:"totalOriginalSize"`
	TotalProcessedSize int64                  `json:"totalProcessedSize"`
	Failures           []models.ItemFailure   `json:"failures,omitempty"`
}

// PickerHandler exposes picker sessions and imports to the browser.
type PickerHandler struct {
	picker   tasks.PickerAPI
	importer tasks.MediaImporter
	tokens   tasks.TokenSource
	authURL  string
	logger   *log.Logger
}

// NewPickerHandler creates a PickerHandler. authURL is returned to clients whose requests fail
// because the Google account is not linked.
func NewPickerHandler(picker tasks.PickerAPI, importer tasks.MediaImporter, tokens tasks.TokenSource, authURL string, logger *log.Logger) *PickerHandler {
	return &PickerHandler{
		picker:   picker,
		importer: importer,
		tokens:   tokens,
		authURL:  authURL,
		logger:   shared.WithLogger(logger, "component", "picker_api"),
	}
}

func (h *PickerHandler) Routes() []string {
	return []string{
		"POST /picker/session",
		"GET /picker/session/{id}/poll",
		"POST /picker/session/{id}/items",
		"POST /picker/import",
	}
}

func (h *PickerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "POST /picker/session":
		h.createSession(w, r)
	case "GET /picker/session/{id}/poll":
		h.poll(w, r)
	case "POST /picker/session/{id}/items":
		h.items(w, r)
	case "POST /picker/import":
		h.importItems(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *PickerHandler) fail(w http.ResponseWriter, op string, err error) {
	if needsAuth(err) {
		h.logger.Info("google authorization required", "op", op, "error", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), AuthRequired: true, AuthURL: h.authURL})
		return
	}
	h.logger.Error("picker request failed", "op", op, "error", err)
	writeError(w, statusFor(err), err)
}

func (h *PickerHandler) createSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.picker.CreateSession(r.Context())
	if err != nil {
		h.fail(w, "create_session", err)
		return
	}
	writeJSON(w, http.StatusOK, createSessionResponse{Success: true, SessionID: session.ID, PickerURI: session.PickerURI})
}

func (h *PickerHandler) poll(w http.ResponseWriter, r *http.Request) {
	session, err := h.picker.PollSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "poll_session", err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Success: true, Completed: session.MediaItemsSet, State: session.State().Wire()})
}

func (h *PickerHandler) items(w http.ResponseWriter, r *http.Request) {
	items, err := h.picker.ListPickedItems(r.Context(), r.PathValue("id"))
	if errors.Is(err, shared.ErrNotReadyYet) {
		writeJSON(w, http.StatusOK, itemsResponse{Success: true, State: models.StatePickingInProgress.Wire()})
		return
	}
	if err != nil {
		h.fail(w, "list_media_items", err)
		return
	}
	if items == nil {
		items = []models.PickedMediaItem{}
	}
	writeJSON(w, http.StatusOK, itemsResponse{Success: true, Completed: true, SelectedItems: items, Count: len(items)})
}

func (h *PickerHandler) importItems(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	if len(req.SelectedItems) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: no items selected", shared.ErrMissingArgument))
		return
	}

	tok, err := h.tokens.Token(r.Context())
	if err != nil {
		h.fail(w, "import", err)
		return
	}

	result := h.importer.Import(r.Context(), req.SelectedItems, tok.Type()+" "+tok.AccessToken, nil)
	if result.Count == 0 {
		h.logger.Error("no items imported", "requested", result.Requested)
		writeJSON(w, http.StatusInternalServerError, struct {
			errorResponse
			Failures []models.ItemFailure `json:"failures"`
		}{errorResponse{Error: "no media could be imported"}, result.Failures})
		return
	}

	media := result.Media
	if media == nil {
		media = []models.ImportedMedia{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Success:            true,
		Media:              media,
		Count:              result.Count,
		TotalOriginalSize:  result.TotalOriginalSize,
		TotalProcessedSize: result.TotalProcessedSize,
		Failures:           result.Failures,
	})
}
