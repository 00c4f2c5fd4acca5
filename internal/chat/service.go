// Package chat owns the live generation model and the protocol for switching the corpus behind it.
package chat

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/corpus"
	"chabbo/app/internal/markov"
)

// Service answers chat prompts from the active corpus and switches corpora on request.
type Service interface {
	// Respond generates text seeded by the trimmed, lowercased input, or unseeded when input is blank.
	// An empty result means no line in the corpus starts with that token.
	Respond(ctx context.Context, input string) (string, error)
	ActiveCorpus(ctx context.Context) (string, error)
	ListCorpora(ctx context.Context) ([]CorpusEntry, error)
	// UploadCorpus stores data, rebuilds the model from it and makes it the active corpus.
	UploadCorpus(ctx context.Context, name string, data []byte) (string, error)
	// ChooseCorpus rebuilds the model from an already stored corpus, or the bundled one for
	// "Default", and makes it the active corpus.
	ChooseCorpus(ctx context.Context, name string) (string, error)
	// Health reports whether the backend answers and a model is loaded.
	Health(ctx context.Context) error
}

// CorpusEntry is one selectable corpus.
type CorpusEntry struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Options wires the chat service.
type Options struct {
	Backend   corpus.Backend
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type service struct {
	backend   corpus.Backend
	logger    *logrus.Logger
	sentryHub *sentry.Hub

	mu    sync.RWMutex
	chain *markov.Chain
}

var _ Service = (*service)(nil)

// ErrModelNotReady is reported by Health before a model has been built.
var ErrModelNotReady = eris.New("generation model not ready")

// NewService resolves the persisted active corpus, builds the initial model and returns the
// service. A missing or unreadable active corpus fails startup.
func NewService(ctx context.Context, opts Options) (Service, error) {
	if opts.Backend == nil {
		return nil, eris.New("corpus backend is required")
	}

	s := &service{
		backend:   opts.Backend,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
	}

	settings, err := corpus.GetSettings(ctx, s.backend)
	if err != nil {
		s.recordError(nil, err, "loading settings")
		return nil, eris.Wrap(err, "loading settings")
	}

	text, err := corpus.InitialCorpus(ctx, s.backend)
	if err != nil {
		s.recordError(logrus.Fields{"corpus": settings.ActiveCorpus.String()}, err, "loading initial corpus")
		return nil, eris.Wrap(err, "loading initial corpus")
	}

	chain, err := buildChain(settings.ActiveCorpus.String(), text)
	if err != nil {
		return nil, err
	}
	s.chain = chain

	s.logInfo(logrus.Fields{"corpus": settings.ActiveCorpus.String(), "lines": chain.Lines()}, "initial model built")
	return s, nil
}

func (s *service) Respond(_ context.Context, input string) (string, error) {
	seed := strings.ToLower(strings.TrimSpace(input))

	s.mu.RLock()
	chain := s.chain
	s.mu.RUnlock()

	if seed == "" {
		return chain.Generate(), nil
	}
	return chain.GenerateFrom(seed), nil
}

func (s *service) ActiveCorpus(ctx context.Context) (string, error) {
	name, err := corpus.ActiveCorpusName(ctx, s.backend)
	if err != nil {
		s.logFailure(nil, err, "reading active corpus")
		return "", eris.Wrap(err, "reading active corpus")
	}
	return name, nil
}

func (s *service) ListCorpora(ctx context.Context) ([]CorpusEntry, error) {
	active, err := s.ActiveCorpus(ctx)
	if err != nil {
		return nil, err
	}

	names, err := s.backend.ListFiles(ctx)
	if err != nil {
		s.logFailure(nil, err, "listing corpora")
		return nil, eris.Wrap(err, "listing corpora")
	}
	slices.Sort(names)

	entries := make([]CorpusEntry, 0, len(names)+1)
	entries = append(entries, CorpusEntry{Name: corpus.DefaultName, IsActive: active == corpus.DefaultName})
	for _, name := range names {
		if name == corpus.DefaultName {
			continue
		}
		entries = append(entries, CorpusEntry{Name: name, IsActive: name == active})
	}
	return entries, nil
}

func (s *service) UploadCorpus(ctx context.Context, name string, data []byte) (string, error) {
	fields := logrus.Fields{"corpus": name, "bytes": len(data)}

	stored, err := s.backend.UploadFile(ctx, name, data)
	if err != nil {
		s.logFailure(fields, err, "storing uploaded corpus")
		return "", eris.Wrapf(err, "storing corpus %s", name)
	}

	text := strings.ToValidUTF8(string(data), "\uFFFD")
	return s.switchTo(ctx, stored, text)
}

func (s *service) ChooseCorpus(ctx context.Context, name string) (string, error) {
	selector := corpus.ParseSelector(name)

	text := corpus.DefaultText()
	if !selector.IsDefault() {
		var err error
		text, err = s.backend.GetFileContents(ctx, selector.Path())
		if err != nil {
			if !eris.Is(err, corpus.ErrNotFound) {
				s.logFailure(logrus.Fields{"corpus": name}, err, "reading chosen corpus")
			}
			return "", eris.Wrapf(err, "reading corpus %s", name)
		}
	}

	return s.switchTo(ctx, selector.String(), text)
}

// switchTo rebuilds the model, swaps it in and persists name as active. Earlier steps are not
// undone when a later one fails.
func (s *service) switchTo(ctx context.Context, name, text string) (string, error) {
	fields := logrus.Fields{"corpus": name}

	chain, err := buildChain(name, text)
	if err != nil {
		s.logFailure(fields, err, "building model")
		return "", err
	}

	s.mu.Lock()
	s.chain = chain
	s.mu.Unlock()

	active, err := corpus.SetActiveCorpusName(ctx, s.backend, name)
	if err != nil {
		s.logFailure(fields, err, "persisting active corpus")
		return "", eris.Wrapf(err, "persisting active corpus %s", name)
	}

	s.logInfo(logrus.Fields{"corpus": active, "lines": chain.Lines()}, "switched corpus")
	return active, nil
}

func (s *service) Health(ctx context.Context) error {
	if _, err := s.backend.ListFiles(ctx); err != nil {
		return eris.Wrap(err, "listing corpora")
	}

	s.mu.RLock()
	ready := s.chain != nil
	s.mu.RUnlock()

	if !ready {
		return ErrModelNotReady
	}
	return nil
}

func buildChain(name, text string) (*markov.Chain, error) {
	plain, err := corpus.PlainText(name, text)
	if err != nil {
		return nil, eris.Wrapf(err, "preparing corpus %s", name)
	}
	return markov.Build(plain), nil
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Info(message)
}

// logFailure notes a failed request-path operation. The caller reports it to Sentry.
func (s *service) logFailure(fields logrus.Fields, err error, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).WithField("error", err.Error()).Warn(message)
}

// recordError logs and captures startup failures, which have no request to report them.
func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
