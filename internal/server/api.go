package server

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/sessions"
	"github.com/spinnelein/familybook/internal/metrics"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/spinnelein/familybook/internal/tasks"
)

// Deps are the collaborators served by [NewAPI].
type Deps struct {
	Flow     AuthFlow
	Cookies  sessions.Store
	Picker   tasks.PickerAPI
	Importer tasks.MediaImporter
	Tokens   tasks.TokenSource
	Auth     AuthStatus
	Storage  services.Storage
	Ledger   StatsSource
	Logger   *log.Logger
}

// NewAPI builds the HTTP surface of the picker service.
func NewAPI(cfg shared.ServerConfig, deps Deps) http.Handler {
	logger := shared.WithLogger(deps.Logger, "component", "http")

	router := NewBasicRouter()
	router.Use(Logging(logger))

	authURL := strings.TrimRight(cfg.BaseURL, "/") + "/auth/start"
	router.Handler(NewAuthHandler(deps.Flow, deps.Cookies, cfg.PostAuthRedirect, deps.Logger))
	router.Handler(NewPickerHandler(deps.Picker, deps.Importer, deps.Tokens, authURL, deps.Logger))
	router.Handler(NewFilesHandler(deps.Storage, deps.Ledger, deps.Auth, deps.Logger))
	router.Handle(http.MethodGet, "/metrics", metrics.Handler())

	return CORS(cfg.AllowedOrigins)(router)
}
