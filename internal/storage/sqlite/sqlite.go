// Package sqlite stores corpora and settings in a SQLite database through Gorm.
package sqlite

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chabbo/app/internal/corpus"
)

const settingsKey = "settings"

// Options configures the sqlite backend.
type Options struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

// Service is the database-backed corpus backend.
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ corpus.Backend = (*Service)(nil)

// New wraps a migrated database as a corpus backend.
func New(opts Options) (*Service, error) {
	if opts.DB == nil {
		return nil, corpus.ConfigurationFailure(nil, "gorm DB is required")
	}
	return &Service{db: opts.DB, logger: opts.Logger}, nil
}

// ListFiles returns every stored corpus name in alphabetical order.
func (s *Service) ListFiles(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&CorpusFile{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		s.logError(nil, err, "listing corpus files")
		return nil, corpus.StorageFailure(err, "listing corpus files")
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// UploadFile inserts or replaces the corpus stored under name.
func (s *Service) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", corpus.StorageFailure(nil, "corpus name is required")
	}

	if data == nil {
		data = []byte{}
	}

	file := CorpusFile{Name: name, Content: data}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(&file).Error
	if err != nil {
		s.logError(logrus.Fields{"name": name}, err, "saving corpus file")
		return "", corpus.StorageFailure(err, "saving corpus file %s", name)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": name, "bytes": len(data)}).Debug("stored corpus in database")
	}
	return name, nil
}

// GetFileContents returns the stored text for name, replacing invalid UTF-8 sequences.
func (s *Service) GetFileContents(ctx context.Context, name string) (string, error) {
	var file CorpusFile
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&file).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return "", corpus.NotFound("corpus file %s", name)
		}
		s.logError(logrus.Fields{"name": name}, err, "fetching corpus file")
		return "", corpus.StorageFailure(err, "fetching corpus file %s", name)
	}

	return strings.ToValidUTF8(string(file.Content), "\uFFFD"), nil
}

// TryGetSettings reads and decodes the settings row. Any failure reports false.
func (s *Service) TryGetSettings(ctx context.Context) (corpus.Settings, bool) {
	var record SettingsRecord
	if err := s.db.WithContext(ctx).Where("`key` = ?", settingsKey).First(&record).Error; err != nil {
		return corpus.Settings{}, false
	}

	settings, err := corpus.DecodeSettings([]byte(record.Value))
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("error", err.Error()).Debug("settings row could not be decoded")
		}
		return corpus.Settings{}, false
	}
	return settings, true
}

// WriteSettings upserts the settings row.
func (s *Service) WriteSettings(ctx context.Context, settings corpus.Settings) error {
	value, err := corpus.EncodeSettings(settings)
	if err != nil {
		return corpus.StorageFailure(err, "encoding settings")
	}

	record := SettingsRecord{Key: settingsKey, Value: string(value)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		s.logError(nil, err, "writing settings row")
		return corpus.StorageFailure(err, "writing settings row")
	}
	return nil
}

func (s *Service) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
