package remote

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rotisserie/eris"

	"chabbo/app/internal/corpus"
)

type fakeBase struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
	getErr  error
	putErr  error
	puts    []Record
}

func newFakeBase() *fakeBase {
	return &fakeBase{records: make(map[string]json.RawMessage)}
}

func (b *fakeBase) Get(_ context.Context, key string) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.getErr != nil {
		return nil, b.getErr
	}
	value, ok := b.records[key]
	if !ok {
		return nil, eris.Wrapf(ErrMissing, "key %s", key)
	}
	return value, nil
}

func (b *fakeBase) Put(_ context.Context, records ...Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.putErr != nil {
		return b.putErr
	}
	for _, record := range records {
		b.records[record.Key] = record.Value
		b.puts = append(b.puts, record)
	}
	return nil
}

type fakeDrive struct {
	files    map[string][]byte
	order    []string
	listBody json.RawMessage
	putBody  json.RawMessage
	err      error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string][]byte)}
}

func (d *fakeDrive) List(_ context.Context) (json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.listBody != nil {
		return d.listBody, nil
	}
	return json.Marshal(map[string][]string{"names": d.order})
}

func (d *fakeDrive) Put(_ context.Context, name string, data []byte) (json.RawMessage, error) {
	if d.err != nil {
		return nil, d.err
	}
	if _, ok := d.files[name]; !ok {
		d.order = append(d.order, name)
	}
	d.files[name] = data
	if d.putBody != nil {
		return d.putBody, nil
	}
	return json.Marshal(map[string]string{"name": name})
}

func (d *fakeDrive) Get(_ context.Context, name string) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	data, ok := d.files[name]
	if !ok {
		return nil, eris.Wrapf(ErrMissing, "file %s", name)
	}
	return data, nil
}

func TestNewRequiresBaseAndDrive(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{Drive: newFakeDrive()}); !eris.Is(err, corpus.ErrConfiguration) {
		t.Fatalf("expected configuration error without base, got %v", err)
	}
	if _, err := New(Options{Base: newFakeBase()}); !eris.Is(err, corpus.ErrConfiguration) {
		t.Fatalf("expected configuration error without drive, got %v", err)
	}
}

func TestConnectRequiresProjectKey(t *testing.T) {
	t.Parallel()

	_, _, err := Connect(context.Background(), ConnectOptions{ProjectKey: "  "})
	if !eris.Is(err, corpus.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUploadListAndRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _ := newTestService(t)

	stored, err := svc.UploadFile(ctx, "gray.txt", []byte("the picture"))
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if stored != "gray.txt" {
		t.Fatalf("expected echoed name gray.txt, got %q", stored)
	}

	names, err := svc.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles returned error: %v", err)
	}
	if len(names) != 1 || names[0] != "gray.txt" {
		t.Fatalf("expected [gray.txt], got %v", names)
	}

	text, err := svc.GetFileContents(ctx, "gray.txt")
	if err != nil {
		t.Fatalf("GetFileContents returned error: %v", err)
	}
	if text != "the picture" {
		t.Fatalf("expected uploaded text, got %q", text)
	}
}

func TestUploadReturnsDriveName(t *testing.T) {
	t.Parallel()

	svc, _, drive := newTestService(t)
	drive.putBody = json.RawMessage(`{"name":"renamed.txt"}`)

	stored, err := svc.UploadFile(context.Background(), "x.txt", []byte("x"))
	if err != nil {
		t.Fatalf("UploadFile returned error: %v", err)
	}
	if stored != "renamed.txt" {
		t.Fatalf("expected drive supplied name, got %q", stored)
	}
}

func TestGetFileContentsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, drive := newTestService(t)

	if _, err := svc.GetFileContents(ctx, "missing"); !eris.Is(err, corpus.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}

	drive.err = eris.New("connection reset")
	if _, err := svc.GetFileContents(ctx, "missing"); !eris.Is(err, corpus.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if _, err := svc.ListFiles(ctx); !eris.Is(err, corpus.ErrStorage) {
		t.Fatalf("expected storage error from listing, got %v", err)
	}
	if _, err := svc.UploadFile(ctx, "x", nil); !eris.Is(err, corpus.ErrStorage) {
		t.Fatalf("expected storage error from upload, got %v", err)
	}
}

func TestMalformedDriveResponsesPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("listing", func(t *testing.T) {
		t.Parallel()

		svc, _, drive := newTestService(t)
		drive.listBody = json.RawMessage(`{"items":[]}`)
		expectPanic(t, func() { _, _ = svc.ListFiles(ctx) })
	})

	t.Run("upload", func(t *testing.T) {
		t.Parallel()

		svc, _, drive := newTestService(t)
		drive.putBody = json.RawMessage(`{}`)
		expectPanic(t, func() { _, _ = svc.UploadFile(ctx, "x", []byte("x")) })
	})
}

func TestSettingsAbsentOnAnyFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, base, _ := newTestService(t)

	if _, ok := svc.TryGetSettings(ctx); ok {
		t.Fatalf("expected missing record to be absent")
	}

	base.records[settingsKey] = json.RawMessage(`{"active_corpus":{"Bogus":1}}`)
	if _, ok := svc.TryGetSettings(ctx); ok {
		t.Fatalf("expected malformed record to be absent")
	}

	base.getErr = eris.New("timeout")
	if _, ok := svc.TryGetSettings(ctx); ok {
		t.Fatalf("expected transport failure to be absent")
	}
}

func TestWriteSettingsRecordShape(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, base, _ := newTestService(t)

	if _, err := corpus.SetActiveCorpusName(ctx, svc, "gray.txt"); err != nil {
		t.Fatalf("SetActiveCorpusName returned error: %v", err)
	}

	if len(base.puts) != 2 {
		t.Fatalf("expected healed default and chosen corpus to be written, got %d records", len(base.puts))
	}
	if healed := base.puts[0]; healed.Key != "settings" || string(healed.Value) != `{"active_corpus":"Default"}` {
		t.Fatalf("unexpected healed record %s=%s", healed.Key, healed.Value)
	}
	record := base.puts[1]
	if record.Key != "settings" {
		t.Fatalf("expected settings key, got %q", record.Key)
	}
	if string(record.Value) != `{"active_corpus":{"FromFile":{"path":"gray.txt"}}}` {
		t.Fatalf("unexpected record value %s", record.Value)
	}

	name, err := corpus.ActiveCorpusName(ctx, svc)
	if err != nil {
		t.Fatalf("ActiveCorpusName returned error: %v", err)
	}
	if name != "gray.txt" {
		t.Fatalf("expected gray.txt, got %q", name)
	}

	base.putErr = eris.New("write refused")
	if err := svc.WriteSettings(ctx, corpus.DefaultSettings()); !eris.Is(err, corpus.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func newTestService(t *testing.T) (*Service, *fakeBase, *fakeDrive) {
	t.Helper()

	base := newFakeBase()
	drive := newFakeDrive()
	svc, err := New(Options{Base: base, Drive: drive})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return svc, base, drive
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
