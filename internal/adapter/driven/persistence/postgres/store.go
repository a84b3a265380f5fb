package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

// Open connects to the database and migrates the schema. TranslateError is on
// so duplicate-key violations surface as gorm.ErrDuplicatedKey regardless of
// the underlying driver.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Device{})
}
