package corpus

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound indicates that a named corpus file does not exist in the backend.
	ErrNotFound = eris.New("corpus file not found")
	// ErrStorage indicates an I/O, network or serialisation failure inside a backend.
	ErrStorage = eris.New("corpus storage failure")
	// ErrConfiguration indicates that a backend cannot be constructed. It is never retried.
	ErrConfiguration = eris.New("corpus backend misconfigured")
)

// FileStorage stores named corpus blobs.
type FileStorage interface {
	ListFiles(ctx context.Context) ([]string, error)
	UploadFile(ctx context.Context, name string, data []byte) (string, error)
	GetFileContents(ctx context.Context, name string) (string, error)
}

// SettingsStore persists the single Settings record.
type SettingsStore interface {
	// TryGetSettings reports false on a missing record, malformed data or any I/O failure.
	TryGetSettings(ctx context.Context) (Settings, bool)
	WriteSettings(ctx context.Context, settings Settings) error
}

// Backend is any storage implementation offering both capabilities.
type Backend interface {
	FileStorage
	SettingsStore
}

// NotFound wraps ErrNotFound with a description of what was missing.
func NotFound(format string, args ...any) error {
	return eris.Wrapf(ErrNotFound, format, args...)
}

// StorageFailure classifies cause as ErrStorage. The cause stays in the unwrap chain.
func StorageFailure(cause error, format string, args ...any) error {
	return classify(ErrStorage, cause, fmt.Sprintf(format, args...))
}

// ConfigurationFailure classifies cause as ErrConfiguration. The cause stays in the unwrap chain.
func ConfigurationFailure(cause error, format string, args ...any) error {
	return classify(ErrConfiguration, cause, fmt.Sprintf(format, args...))
}

func classify(kind, cause error, message string) error {
	if cause == nil {
		return eris.Wrap(kind, message)
	}
	return &kindError{kind: kind, message: message, cause: cause, wrapped: eris.Wrap(cause, message)}
}

// kindError matches its sentinel through Is and unwraps to the eris-wrapped cause.
type kindError struct {
	kind    error
	message string
	cause   error
	wrapped error
}

func (e *kindError) Error() string {
	return e.message + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.wrapped
}

// GetSettings loads the settings record. When none can be loaded the default record is written
// back and returned, so a fresh or corrupted store heals on first access.
func GetSettings(ctx context.Context, store SettingsStore) (Settings, error) {
	if settings, ok := store.TryGetSettings(ctx); ok {
		return settings, nil
	}

	settings := DefaultSettings()
	if err := store.WriteSettings(ctx, settings); err != nil {
		return Settings{}, eris.Wrap(err, "writing default settings")
	}
	return settings, nil
}

// ActiveCorpusName returns the display name of the active corpus.
func ActiveCorpusName(ctx context.Context, store SettingsStore) (string, error) {
	settings, err := GetSettings(ctx, store)
	if err != nil {
		return "", err
	}
	return settings.ActiveCorpus.String(), nil
}

// SetActiveCorpusName persists name as the active corpus and returns its display name.
// Concurrent callers race; the last write wins.
func SetActiveCorpusName(ctx context.Context, store SettingsStore, name string) (string, error) {
	settings, err := GetSettings(ctx, store)
	if err != nil {
		return "", err
	}

	settings.ActiveCorpus = ParseSelector(name)
	if err := store.WriteSettings(ctx, settings); err != nil {
		return "", eris.Wrapf(err, "persisting active corpus %s", name)
	}
	return settings.ActiveCorpus.String(), nil
}

// InitialCorpus resolves the persisted settings to corpus text: the bundled text for the default
// selector, otherwise the contents of the named file.
func InitialCorpus(ctx context.Context, backend Backend) (string, error) {
	settings, err := GetSettings(ctx, backend)
	if err != nil {
		return "", err
	}

	if settings.ActiveCorpus.IsDefault() {
		return DefaultText(), nil
	}

	text, err := backend.GetFileContents(ctx, settings.ActiveCorpus.Path())
	if err != nil {
		return "", eris.Wrapf(err, "loading active corpus %s", settings.ActiveCorpus.Path())
	}
	return text, nil
}
