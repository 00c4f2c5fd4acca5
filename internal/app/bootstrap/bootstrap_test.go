package bootstrap

import (
	"context"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/config"
	"chabbo/app/internal/corpus"
	"chabbo/app/internal/storage/ephemeral"
)

func TestBuildWiresEphemeralBackend(t *testing.T) {
	t.Parallel()

	result, err := Build(context.Background(), Dependencies{
		Config:         testConfig(config.BackendEphemeral, ""),
		Logger:         silentLogger(),
		EphemeralStore: ephemeral.NewStore(),
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer result.Cleanup(context.Background())

	if result.Backend != config.BackendEphemeral {
		t.Fatalf("expected ephemeral backend, got %q", result.Backend)
	}

	active, err := result.ChatService.ActiveCorpus(context.Background())
	if err != nil {
		t.Fatalf("ActiveCorpus returned error: %v", err)
	}
	if active != corpus.DefaultName {
		t.Fatalf("expected Default corpus on a fresh backend, got %q", active)
	}

	req := httptest.NewRequest("GET", "/corpus/active", nil)
	rec := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), `"Default"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestBuildWiresSQLiteBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.BackendSQLite, "")
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "chabbo.db")

	result, err := Build(context.Background(), Dependencies{Config: cfg, Logger: silentLogger()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if err := result.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup returned error: %v", err)
	}
}

func TestBuildRejectsRemoteWithoutKey(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), Dependencies{
		Config: testConfig(config.BackendRemote, ""),
		Logger: silentLogger(),
	})
	if !eris.Is(err, corpus.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBuildRejectsInvalidRateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.BackendEphemeral, "")
	cfg.RateLimitBurst = 0

	if _, err := Build(context.Background(), Dependencies{
		Config:         cfg,
		Logger:         silentLogger(),
		EphemeralStore: ephemeral.NewStore(),
	}); err == nil {
		t.Fatalf("expected invalid rate limit settings to fail")
	}
}

func testConfig(backend config.Backend, dataDir string) config.Config {
	return config.Config{
		Backend:            backend,
		DataDir:            dataDir,
		RateLimitRPS:       5,
		RateLimitBurst:     20,
		RateLimitClientTTL: time.Minute,
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
