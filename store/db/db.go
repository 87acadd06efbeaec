// Package db selects the concrete database driver.
package db

import (
	"github.com/pkg/errors"

	"github.com/clare-ai/clare/internal/profile"
	"github.com/clare-ai/clare/store"
	"github.com/clare-ai/clare/store/db/postgres"
)

// NewDBDriver creates the store driver for the configured database.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := postgres.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres driver")
	}
	return driver, nil
}
