package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spinnelein/familybook/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing, prepares the upload directory
// and runs database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}

		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
		r.writePlain("✓ Created %s\n", r.configPath)
	}

	if r.config.Storage.Backend == "" || r.config.Storage.Backend == "local" {
		if err := os.MkdirAll(r.config.Storage.UploadDir, 0755); err != nil {
			return fmt.Errorf("failed to create upload directory: %w", err)
		}
		r.writePlain("✓ Upload directory: %s\n", r.config.Storage.UploadDir)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready: %s\n", r.config.Database.Path)

	r.writePlainln("Next steps:")
	r.writePlain("1. Set google.client_id and google.client_secret in %s\n", r.configPath)
	r.writePlain("2. Run 'familybook auth login' to link a Google account\n")
	r.writePlain("3. Run 'familybook picker import' or 'familybook serve'\n")
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.writePlain("✓ Rolled back the latest migration\n")
	return nil
}
