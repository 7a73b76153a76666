package migrate

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	elementrepo "github.com/yungbote/elementstore/internal/data/repos/elements"
)

// SchemaMigration records one applied step ("app_schema_migrations" with the
// default prefix).
type SchemaMigration struct {
	Version     string    `gorm:"primaryKey;size:32;column:version"`
	Description string    `gorm:"not null;column:description"`
	AppliedAt   time.Time `gorm:"not null;column:applied_at"`
}

// Step is one versioned schema change. Up runs inside a transaction and must
// tolerate objects that already exist.
type Step struct {
	Version     string
	Description string
	Up          func(tx *gorm.DB) error
}

// Steps returns the schema history in the order it is applied.
func Steps() []Step {
	return []Step{
		{
			Version:     "0001",
			Description: "create element and sub element tables",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(elementrepo.Models()...)
			},
		},
		{
			Version:     "0002",
			Description: "unique sub element position per element",
			Up: func(tx *gorm.DB) error {
				table := tx.NamingStrategy.TableName("SubElement")
				return tx.Exec(fmt.Sprintf(
					"CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_element_position ON %s (element_id, position)",
					table, table,
				)).Error
			},
		},
	}
}
