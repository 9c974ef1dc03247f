package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spinnelein/familybook/internal/shared"
)

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// notFound converts [sql.ErrNoRows] into [shared.ErrNotFound] for the named entity.
func notFound(err error, entity, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, key)
	}
	return fmt.Errorf("failed to scan %s: %w", entity, err)
}
