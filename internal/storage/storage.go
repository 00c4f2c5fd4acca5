// Package storage opens the corpus backend selected by configuration.
package storage

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/config"
	"chabbo/app/internal/corpus"
	"chabbo/app/internal/db"
	"chabbo/app/internal/storage/ephemeral"
	"chabbo/app/internal/storage/local"
	"chabbo/app/internal/storage/remote"
	"chabbo/app/internal/storage/sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend config.Backend

	// DataDir roots the local backend. Empty uses the per-user directories.
	DataDir string
	// DBPath locates the sqlite database file.
	DBPath string

	RemoteProjectKey string
	RemoteDatabase   string
	ConnectTimeout   time.Duration

	// EphemeralStore defaults to ephemeral.Shared().
	EphemeralStore *ephemeral.Store

	Logger *logrus.Logger
}

// Opened is a ready backend together with the func that releases its resources.
type Opened struct {
	Backend corpus.Backend
	Kind    config.Backend
	Close   func(context.Context) error
}

func noopClose(context.Context) error { return nil }

// Open constructs the backend named by opts.Backend. Construction failures are configuration
// errors.
func Open(ctx context.Context, opts Options) (Opened, error) {
	fields := logrus.Fields{"component": "storage", "backend": string(opts.Backend)}
	if opts.Logger != nil {
		opts.Logger.WithFields(fields).Info("opening corpus backend")
	}

	switch opts.Backend {
	case config.BackendLocal, "":
		svc, err := local.New(local.Options{Root: opts.DataDir, Logger: opts.Logger})
		if err != nil {
			return Opened{}, err
		}
		if opts.Logger != nil {
			dirs := svc.Dirs()
			opts.Logger.WithFields(fields).WithFields(logrus.Fields{
				"data_dir":   dirs.Data,
				"config_dir": dirs.Config,
			}).Info("local backend ready")
		}
		return Opened{Backend: svc, Kind: config.BackendLocal, Close: noopClose}, nil

	case config.BackendEphemeral:
		store := opts.EphemeralStore
		if store == nil {
			store = ephemeral.Shared()
		}
		svc, err := ephemeral.New(store, opts.Logger)
		if err != nil {
			return Opened{}, corpus.ConfigurationFailure(err, "building ephemeral backend")
		}
		return Opened{Backend: svc, Kind: config.BackendEphemeral, Close: noopClose}, nil

	case config.BackendRemote:
		svc, disconnect, err := remote.Connect(ctx, remote.ConnectOptions{
			ProjectKey:     opts.RemoteProjectKey,
			Database:       opts.RemoteDatabase,
			ConnectTimeout: opts.ConnectTimeout,
			Logger:         opts.Logger,
		})
		if err != nil {
			return Opened{}, err
		}
		return Opened{Backend: svc, Kind: config.BackendRemote, Close: disconnect}, nil

	case config.BackendSQLite:
		return openSQLite(ctx, opts)

	default:
		return Opened{}, corpus.ConfigurationFailure(nil, "unknown storage backend %q", opts.Backend)
	}
}

func openSQLite(ctx context.Context, opts Options) (Opened, error) {
	database, err := db.Open(db.Options{Path: opts.DBPath})
	if err != nil {
		return Opened{}, corpus.ConfigurationFailure(err, "opening sqlite database")
	}

	closeDB := func(context.Context) error {
		if err := db.Close(database); err != nil {
			return eris.Wrap(err, "closing sqlite database")
		}
		return nil
	}

	if err := sqlite.Migrate(ctx, database, opts.Logger); err != nil {
		_ = db.Close(database)
		return Opened{}, corpus.ConfigurationFailure(err, "migrating sqlite database")
	}

	svc, err := sqlite.New(sqlite.Options{DB: database, Logger: opts.Logger})
	if err != nil {
		_ = db.Close(database)
		return Opened{}, err
	}

	return Opened{Backend: svc, Kind: config.BackendSQLite, Close: closeDB}, nil
}
