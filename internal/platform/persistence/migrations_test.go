package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations(logger, "postgres://test", "")
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations(logger, "", "migrations/postgres")
		assert.EqualError(t, err, "database URL cannot be empty")
	})
}
