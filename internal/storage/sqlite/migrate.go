package sqlite

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate creates or updates the corpus_files and settings tables.
func Migrate(ctx context.Context, database *gorm.DB, logger *logrus.Logger) error {
	if database == nil {
		return eris.New("gorm DB is required")
	}

	fields := logrus.Fields{"component": "sqlite.migrate"}
	if logger != nil {
		logger.WithFields(fields).Info("applying corpus schema")
	}

	if err := database.WithContext(ctx).AutoMigrate(&CorpusFile{}, &SettingsRecord{}); err != nil {
		if logger != nil {
			logger.WithFields(fields).WithField("error", err.Error()).Error("corpus schema migration failed")
		}
		return eris.Wrap(err, "auto migrating corpus schema")
	}

	return nil
}
