// Package remote stores corpora in a hosted blob drive and settings in a hosted document base.
package remote

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/corpus"
)

const (
	// DriveName is the blob drive holding corpus files.
	DriveName = "corpus"
	// BaseName is the document base holding the settings record.
	BaseName = "settings"

	settingsKey = "settings"
)

// ErrMissing is returned by Base and Drive implementations when a key or file does not exist.
var ErrMissing = eris.New("remote item not found")

// Record is a keyed document written to a Base. Records never expire.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Base is a key-addressed document store.
type Base interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, records ...Record) error
}

// Drive is a named blob store. List responds with {"names": [...]} and Put echoes {"name": ...}.
type Drive interface {
	List(ctx context.Context) (json.RawMessage, error)
	Put(ctx context.Context, name string, data []byte) (json.RawMessage, error)
	Get(ctx context.Context, name string) ([]byte, error)
}

// Options configures the remote backend.
type Options struct {
	Base   Base
	Drive  Drive
	Logger *logrus.Logger
}

// Service is the hosted corpus backend.
type Service struct {
	base   Base
	drive  Drive
	logger *logrus.Logger
}

var _ corpus.Backend = (*Service)(nil)

type fileList struct {
	Names *[]string `json:"names"`
}

type storedFile struct {
	Name *string `json:"name"`
}

// New wires the backend over an existing base and drive.
func New(opts Options) (*Service, error) {
	if opts.Base == nil {
		return nil, corpus.ConfigurationFailure(nil, "remote document base is required")
	}
	if opts.Drive == nil {
		return nil, corpus.ConfigurationFailure(nil, "remote blob drive is required")
	}

	return &Service{base: opts.Base, drive: opts.Drive, logger: opts.Logger}, nil
}

// ListFiles returns the names held by the drive. A listing without a names field breaks the
// drive contract and panics.
func (s *Service) ListFiles(ctx context.Context) ([]string, error) {
	s.debug(nil, "querying drive for files")

	raw, err := s.drive.List(ctx)
	if err != nil {
		s.logError(nil, err, "listing drive files")
		return nil, corpus.StorageFailure(err, "listing drive %s", DriveName)
	}

	var listing fileList
	if err := json.Unmarshal(raw, &listing); err != nil || listing.Names == nil {
		panic("remote: drive listing response must contain a names field")
	}

	s.debug(logrus.Fields{"count": len(*listing.Names)}, "found drive files")
	return *listing.Names, nil
}

// UploadFile stores data in the drive and returns the name the drive echoes back.
func (s *Service) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	s.debug(logrus.Fields{"name": name, "bytes": len(data)}, "uploading file to drive")

	raw, err := s.drive.Put(ctx, name, data)
	if err != nil {
		s.logError(logrus.Fields{"name": name}, err, "uploading drive file")
		return "", corpus.StorageFailure(err, "uploading %s", name)
	}

	var file storedFile
	if err := json.Unmarshal(raw, &file); err != nil || file.Name == nil {
		panic("remote: drive upload response must contain a name field")
	}
	return *file.Name, nil
}

// GetFileContents downloads a file from the drive.
func (s *Service) GetFileContents(ctx context.Context, name string) (string, error) {
	s.debug(logrus.Fields{"name": name}, "loading file from drive")

	data, err := s.drive.Get(ctx, name)
	if err != nil {
		if eris.Is(err, ErrMissing) {
			return "", corpus.NotFound("drive file %s", name)
		}
		s.logError(logrus.Fields{"name": name}, err, "downloading drive file")
		return "", corpus.StorageFailure(err, "downloading %s", name)
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// TryGetSettings fetches the settings record. Transport failures, a missing key and malformed
// payloads all report false.
func (s *Service) TryGetSettings(ctx context.Context) (corpus.Settings, bool) {
	s.debug(nil, "getting settings from base")

	raw, err := s.base.Get(ctx, settingsKey)
	if err != nil {
		if eris.Is(err, ErrMissing) {
			s.debug(nil, "settings record missing")
		} else {
			s.warn(err, "settings record unavailable")
		}
		return corpus.Settings{}, false
	}

	settings, err := corpus.DecodeSettings(raw)
	if err != nil {
		s.warn(err, "settings record could not be decoded")
		return corpus.Settings{}, false
	}
	return settings, true
}

// WriteSettings replaces the settings record.
func (s *Service) WriteSettings(ctx context.Context, settings corpus.Settings) error {
	value, err := corpus.EncodeSettings(settings)
	if err != nil {
		return corpus.StorageFailure(err, "encoding settings")
	}

	if err := s.base.Put(ctx, Record{Key: settingsKey, Value: value}); err != nil {
		s.logError(nil, err, "writing settings record")
		return corpus.StorageFailure(err, "writing settings record")
	}
	return nil
}

func (s *Service) debug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Debug(message)
}

func (s *Service) warn(err error, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithError(err).Warn(message)
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
