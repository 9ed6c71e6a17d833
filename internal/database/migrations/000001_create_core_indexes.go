package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createCoreIndexesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_indexes",
		Migrate: func(tx *gorm.DB) error {
			// Composite indexes the statistics and renewal queries lean on.
			// The tables themselves come from AutoMigrate.
			if err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_subscriptions_due
				ON subscriptions (status, renewal_type, next_billing_date)
				WHERE deleted_at IS NULL
			`).Error; err != nil {
				return err
			}
			return tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_payment_records_sub_date
				ON payment_records (subscription_id, payment_date)
				WHERE deleted_at IS NULL
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec(`DROP INDEX IF EXISTS idx_subscriptions_due`).Error; err != nil {
				return err
			}
			return tx.Exec(`DROP INDEX IF EXISTS idx_payment_records_sub_date`).Error
		},
	}
}
