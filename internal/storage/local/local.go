// Package local stores corpora and settings in per-user application directories on disk.
package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"chabbo/app/internal/corpus"
)

const (
	appDirName       = "chabbo"
	settingsFileName = "db.json"
)

// Dirs holds the directories used by the local backend.
type Dirs struct {
	// Data holds uploaded corpus files.
	Data string
	// Config holds the settings file.
	Config string
}

// Options configures the local backend.
type Options struct {
	// Root overrides the per-user directories with Root/data and Root/config when set.
	Root   string
	Logger *logrus.Logger
}

// Service is the filesystem-backed corpus backend.
type Service struct {
	dirs   Dirs
	logger *logrus.Logger
}

var _ corpus.Backend = (*Service)(nil)

// New resolves the backend directories and creates them, along with an empty settings file.
// Failure here is a configuration error: the process cannot run without these paths.
func New(opts Options) (*Service, error) {
	dirs, err := resolveDirs(opts.Root)
	if err != nil {
		return nil, corpus.ConfigurationFailure(err, "resolving local storage directories")
	}

	svc := &Service{dirs: dirs, logger: opts.Logger}
	if err := svc.ensurePathsExist(); err != nil {
		return nil, corpus.ConfigurationFailure(err, "preparing local storage directories")
	}

	return svc, nil
}

// DefaultDirs returns the per-user directories following the XDG base directory layout.
// Resolution order: $XDG_DATA_HOME/chabbo > ~/.local/share/chabbo for data, and
// os.UserConfigDir()/chabbo for config.
func DefaultDirs() (Dirs, error) {
	home, homeErr := os.UserHomeDir()

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if homeErr != nil {
			return Dirs{}, homeErr
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	configHome, err := os.UserConfigDir()
	if err != nil {
		return Dirs{}, err
	}

	return Dirs{
		Data:   filepath.Join(dataHome, appDirName),
		Config: filepath.Join(configHome, appDirName),
	}, nil
}

func resolveDirs(root string) (Dirs, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return DefaultDirs()
	}
	return Dirs{
		Data:   filepath.Join(root, "data"),
		Config: filepath.Join(root, "config"),
	}, nil
}

func (s *Service) ensurePathsExist() error {
	for _, dir := range []string{s.dirs.Data, s.dirs.Config} {
		s.debug(logrus.Fields{"dir": dir}, "creating directory if missing")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	path := s.settingsPath()
	s.debug(logrus.Fields{"path": path}, "creating settings file if missing")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

// Dirs returns the directories the backend reads from and writes to.
func (s *Service) Dirs() Dirs {
	return s.dirs
}

func (s *Service) settingsPath() string {
	return filepath.Join(s.dirs.Config, settingsFileName)
}

func (s *Service) qualifiedPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dirs.Data, name)
}

// ListFiles returns the base names of the entries in the data directory.
func (s *Service) ListFiles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dirs.Data)
	if err != nil {
		s.logError(logrus.Fields{"dir": s.dirs.Data}, err, "listing corpus files")
		return nil, corpus.StorageFailure(err, "listing %s", s.dirs.Data)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// UploadFile writes data into the data directory. Only the base name of name is kept, so uploads
// cannot escape the directory; the stored name is returned.
func (s *Service) UploadFile(_ context.Context, name string, data []byte) (string, error) {
	stored := filepath.Base(strings.TrimSpace(name))
	if stored == "." || stored == string(filepath.Separator) {
		return "", corpus.StorageFailure(nil, "invalid corpus file name %q", name)
	}

	path := filepath.Join(s.dirs.Data, stored)
	s.debug(logrus.Fields{"path": path, "bytes": len(data)}, "writing corpus file")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logError(logrus.Fields{"path": path}, err, "writing corpus file")
		return "", corpus.StorageFailure(err, "writing %s", path)
	}

	return stored, nil
}

// GetFileContents reads a corpus file. Absolute paths are read as given, relative names are
// resolved against the data directory, and "default" in any case returns the bundled corpus.
func (s *Service) GetFileContents(_ context.Context, name string) (string, error) {
	if strings.EqualFold(name, "default") {
		s.debug(nil, "loading bundled corpus")
		return corpus.DefaultText(), nil
	}

	path := s.qualifiedPath(name)
	s.debug(logrus.Fields{"path": path}, "loading corpus file")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", corpus.NotFound("corpus file %s", path)
		}
		s.logError(logrus.Fields{"path": path}, err, "reading corpus file")
		return "", corpus.StorageFailure(err, "reading %s", path)
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// TryGetSettings reads and decodes the settings file, reporting false on any failure.
func (s *Service) TryGetSettings(_ context.Context) (corpus.Settings, bool) {
	data, err := os.ReadFile(s.settingsPath())
	if err != nil {
		s.debug(logrus.Fields{"error": err.Error()}, "settings file unreadable")
		return corpus.Settings{}, false
	}

	settings, err := corpus.DecodeSettings(data)
	if err != nil {
		s.debug(logrus.Fields{"error": err.Error()}, "settings file could not be decoded")
		return corpus.Settings{}, false
	}
	return settings, true
}

// WriteSettings replaces the settings file.
func (s *Service) WriteSettings(_ context.Context, settings corpus.Settings) error {
	data, err := corpus.EncodeSettings(settings)
	if err != nil {
		return corpus.StorageFailure(err, "encoding settings")
	}

	path := s.settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logError(logrus.Fields{"path": path}, err, "writing settings file")
		return corpus.StorageFailure(err, "writing %s", path)
	}
	return nil
}

func (s *Service) debug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Debug(message)
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
