package ephemeral

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rotisserie/eris"

	"chabbo/app/internal/corpus"
)

func TestNewRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Fatalf("expected error when store is nil")
	}
}

func TestUploadThenRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	stored, err := svc.UploadFile(ctx, "a.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if stored != "a.txt" {
		t.Fatalf("expected stored name a.txt, got %q", stored)
	}

	text, err := svc.GetFileContents(ctx, "a.txt")
	if err != nil {
		t.Fatalf("GetFileContents returned error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("expected hello, got %q", text)
	}

	names, err := svc.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles returned error: %v", err)
	}
	if len(names) != 1 || names[0] != "a.txt" {
		t.Fatalf("expected [a.txt], got %v", names)
	}
}

func TestGetFileContentsMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.GetFileContents(context.Background(), "missing")
	if !eris.Is(err, corpus.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUploadReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.UploadFile(ctx, "bin", []byte{'o', 'k', 0xff}); err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}

	text, err := svc.GetFileContents(ctx, "bin")
	if err != nil {
		t.Fatalf("GetFileContents returned error: %v", err)
	}
	if text != "ok\uFFFD" {
		t.Fatalf("expected lossy conversion, got %q", text)
	}
}

func TestSettingsSelfHeal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	settings, err := corpus.GetSettings(ctx, svc)
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	if !settings.ActiveCorpus.IsDefault() {
		t.Fatalf("expected default active corpus")
	}

	persisted, ok := svc.TryGetSettings(ctx)
	if !ok || persisted != settings {
		t.Fatalf("expected healed settings to persist, got %#v (%v)", persisted, ok)
	}
}

func TestServicesSharingStoreSeeSameState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore()

	first, err := New(store, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	second, err := New(store, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := first.UploadFile(ctx, "shared.txt", []byte("shared")); err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if _, err := corpus.SetActiveCorpusName(ctx, first, "shared.txt"); err != nil {
		t.Fatalf("SetActiveCorpusName returned error: %v", err)
	}

	name, err := corpus.ActiveCorpusName(ctx, second)
	if err != nil {
		t.Fatalf("ActiveCorpusName returned error: %v", err)
	}
	if name != "shared.txt" {
		t.Fatalf("expected shared active corpus, got %q", name)
	}

	isolated := newTestService(t)
	if _, err := isolated.GetFileContents(ctx, "shared.txt"); err == nil {
		t.Fatalf("expected separate stores to be isolated")
	}
}

func TestSharedReturnsSameStore(t *testing.T) {
	t.Parallel()

	if Shared() != Shared() {
		t.Fatalf("expected Shared to return a single process-wide store")
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("file-%d.txt", i)
			if _, err := svc.UploadFile(ctx, name, []byte(name)); err != nil {
				t.Errorf("UploadFile returned error: %v", err)
			}
			if _, err := corpus.SetActiveCorpusName(ctx, svc, name); err != nil {
				t.Errorf("SetActiveCorpusName returned error: %v", err)
			}
			if _, err := svc.ListFiles(ctx); err != nil {
				t.Errorf("ListFiles returned error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	names, err := svc.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles returned error: %v", err)
	}
	if len(names) != 16 {
		t.Fatalf("expected 16 files, got %d", len(names))
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := New(NewStore(), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return svc
}
