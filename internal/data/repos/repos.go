package repos

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// NewDocumentStatusRepoFor picks the backend named by DOCUMENT_STORE.
// db may be nil for the memory backend.
func NewDocumentStatusRepoFor(store string, db *gorm.DB, log *logger.Logger) (DocumentStatusRepo, error) {
	switch strings.ToLower(strings.TrimSpace(store)) {
	case "", StoreMemory:
		return NewMemoryDocumentStatusRepo(log), nil
	case StoreSQLite, StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("document store %q requires a database handle", store)
		}
		return NewDocumentStatusRepo(db, log), nil
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_STORE %q", store)
	}
}
