package store

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrator returns the schema migrator. Migration IDs are append-only.
func Migrator(db *gorm.DB) *gormigrate.Gormigrate {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "1",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Upload{}, &Prediction{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&Prediction{}, &Upload{})
			},
		},
	})
	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(&Upload{}, &Prediction{})
	})
	return m
}
