package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/biblenation/internal/account/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations brings the kv schema up to date from the embedded files.
func (b *Backend) ApplyMigrations() error {
	// 1. SQLite migration driver over the open handle
	driver, err := sqlite.WithInstance(b.db, &sqlite.Config{})
	if err != nil {
		return err
	}

	// 2. Embedded migration source
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	// 3. Migrate instance
	instance, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}

	// 4. Apply pending up migrations
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
