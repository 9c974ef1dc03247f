package models

import (
	"fmt"

	"github.com/spinnelein/familybook/internal/shared"
)

func errMissingField(name string) error {
	return fmt.Errorf("%w: %s is required", shared.ErrInvalidInput, name)
}

func errInvalidField(name, value string) error {
	return fmt.Errorf("%w: invalid %s %q", shared.ErrInvalidInput, name, value)
}
