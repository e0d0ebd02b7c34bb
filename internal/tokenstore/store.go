// Package tokenstore persists OAuth token records between process restarts.
package tokenstore

import (
	"fmt"

	"github.com/leadgate/leadgate/internal/models"
)

// Store reads and writes the persisted token record. Read returns nil when no
// usable record exists; a missing or corrupt record is not an error, it just
// means the operator has to authenticate again.
type Store interface {
	Read() *models.TokenRecord
	Write(rec *models.TokenRecord) error
}

func validateRecord(rec *models.TokenRecord) error {
	if rec == nil {
		return fmt.Errorf("token record is nil")
	}
	if !rec.HasTokens() {
		return fmt.Errorf("token record must carry both access and refresh tokens")
	}
	return nil
}
