// Package ephemeral keeps corpora and settings in process memory. Nothing survives a restart.
package ephemeral

import (
	"context"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/corpus"
)

// Store owns the in-memory state shared by ephemeral backends. The file collection and the
// settings slot are locked independently and no operation holds both.
type Store struct {
	files *cache.Cache

	mu       sync.Mutex
	settings *corpus.Settings
}

// NewStore constructs an empty store. Entries never expire.
func NewStore() *Store {
	return &Store{files: cache.New(cache.NoExpiration, 0)}
}

var shared = sync.OnceValue(NewStore)

// Shared returns the process-wide store. Every backend built on it sees the same files and
// settings for the lifetime of the process.
func Shared() *Store {
	return shared()
}

// Service is the memory-backed corpus backend.
type Service struct {
	store  *Store
	logger *logrus.Logger
}

var _ corpus.Backend = (*Service)(nil)

// New wraps store as a corpus backend.
func New(store *Store, logger *logrus.Logger) (*Service, error) {
	if store == nil {
		return nil, eris.New("ephemeral store is required")
	}
	return &Service{store: store, logger: logger}, nil
}

// ListFiles returns the stored file names in no particular order.
func (s *Service) ListFiles(_ context.Context) ([]string, error) {
	items := s.store.files.Items()
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	return names, nil
}

// UploadFile stores data under name, replacing invalid UTF-8 sequences. It cannot fail.
func (s *Service) UploadFile(_ context.Context, name string, data []byte) (string, error) {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	s.store.files.Set(name, text, cache.NoExpiration)

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"name": name, "bytes": len(data)}).Debug("stored corpus in memory")
	}
	return name, nil
}

// GetFileContents returns the stored text for name.
func (s *Service) GetFileContents(_ context.Context, name string) (string, error) {
	value, ok := s.store.files.Get(name)
	if !ok {
		return "", corpus.NotFound("corpus file %s", name)
	}
	return value.(string), nil
}

// TryGetSettings returns the stored settings, if any have been written.
func (s *Service) TryGetSettings(_ context.Context) (corpus.Settings, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if s.store.settings == nil {
		return corpus.Settings{}, false
	}
	return *s.store.settings, true
}

// WriteSettings replaces the stored settings.
func (s *Service) WriteSettings(_ context.Context, settings corpus.Settings) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.settings = &settings
	return nil
}
