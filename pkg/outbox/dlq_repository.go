package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tastebudhq/storefront-backend/pkg/db/models"
)

// Keeps oversized driver errors from bloating the dead-letter table.
const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the relay gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead-lettered event in the relay's settle transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		trimmed := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &trimmed
	}
	return tx.Create(&entry).Error
}
