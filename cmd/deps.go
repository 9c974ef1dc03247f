package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spinnelein/familybook/internal/repositories"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/spinnelein/familybook/internal/tasks"
	"golang.org/x/oauth2"
)

// deps are the services a command works with, built from the loaded config.
type deps struct {
	oauth       *oauth2.Config
	credentials *services.CredentialStore
	db          *sql.DB
	ledger      *repositories.MediaRepository
	storage     services.Storage
	picker      *services.PickerClient
	importer    *services.Importer
	engine      *tasks.PickerEngine
}

// Close releases the ledger connection.
func (d *deps) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// credentialStore builds the OAuth registration and the token file store.
func (r *Runner) credentialStore() (*oauth2.Config, *services.CredentialStore, error) {
	config, err := services.NewGoogleOAuthConfig(r.config.Google)
	if err != nil {
		return nil, nil, err
	}
	return config, services.NewCredentialStore(r.config.Google.TokenPath, config, r.logger), nil
}

// openLedger opens the configured database and runs pending migrations.
func (r *Runner) openLedger() (*sql.DB, *repositories.MediaRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, repositories.NewMediaRepository(db), nil
}

// buildDeps wires every service needed to create picker sessions and import media.
func (r *Runner) buildDeps(ctx context.Context) (*deps, error) {
	if r.config == nil {
		return nil, fmt.Errorf("%w: configuration not loaded", shared.ErrServiceUnavailable)
	}

	oauthConfig, credentials, err := r.credentialStore()
	if err != nil {
		return nil, err
	}

	db, ledger, err := r.openLedger()
	if err != nil {
		return nil, err
	}

	store, err := services.NewStorage(ctx, r.config.Storage)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	picker := services.NewPickerClient(r.config.Picker, credentials, r.httpClient, r.logger)
	importer := services.NewImporter(store, ledger, r.config.Import, r.httpClient, r.logger)

	return &deps{
		oauth:       oauthConfig,
		credentials: credentials,
		db:          db,
		ledger:      ledger,
		storage:     store,
		picker:      picker,
		importer:    importer,
		engine:      tasks.NewPickerEngine(picker, importer, credentials),
	}, nil
}
