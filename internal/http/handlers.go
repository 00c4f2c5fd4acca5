package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"sort"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"chabbo/app/internal/corpus"
	"chabbo/app/internal/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
	maxUploadBytes       = 32 << 20
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type chatInput struct {
	Body struct {
		Input string `json:"input" doc:"Prompt whose first word seeds the generated text"`
	}
}

type chatOutput struct {
	Body struct {
		Response string `json:"response"`
	}
}

type corpusNameOutput struct {
	Body struct {
		Name string `json:"name"`
	}
}

type corpusListOutput struct {
	Body []corpusListEntry
}

type corpusListEntry struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type chooseCorpusInput struct {
	Body struct {
		Corpus string `json:"corpus" minLength:"1" doc:"Stored corpus name, or Default for the bundled text"`
	}
}

type uploadCorpusInput struct {
	RawBody multipart.Form
}

type healthResponse struct {
	Status int
	Body   struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
		Model   string `json:"model"`
	}
}

func (s *Server) registerIndexRoutes() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation("Chat page", stdhttp.StatusInternalServerError))
	huma.Post(s.api, "/", s.chatHandler, func(op *huma.Operation) {
		op.Summary = "Generate a reply"
	})
}

func (s *Server) registerCorpusRoutes() {
	huma.Get(s.api, "/corpus", s.corpusPageHandler, htmlOperation("Corpus management page", stdhttp.StatusInternalServerError))
	huma.Get(s.api, "/corpus/active", s.activeCorpusHandler, func(op *huma.Operation) {
		op.Summary = "Active corpus name"
	})
	huma.Get(s.api, "/corpus/list", s.listCorporaHandler, func(op *huma.Operation) {
		op.Summary = "List selectable corpora"
	})
	huma.Put(s.api, "/corpus", s.uploadCorpusHandler, func(op *huma.Operation) {
		op.Summary = "Upload a corpus and make it active"
		op.MaxBodyBytes = maxUploadBytes
	})
	huma.Post(s.api, "/corpus", s.chooseCorpusHandler, func(op *huma.Operation) {
		op.Summary = "Make a stored corpus active"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) indexHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	active, err := s.chat.ActiveCorpus(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading active corpus for index page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the active corpus right now.")
	}

	body, err := renderComponent(ctx, templates.IndexPage(templates.IndexPageData{
		Title:        templates.SiteName,
		ActiveCorpus: active,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering index page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the chat page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) chatHandler(ctx context.Context, input *chatInput) (*chatOutput, error) {
	response, err := s.chat.Respond(ctx, input.Body.Input)
	if err != nil {
		s.recordError(ctx, err, "generating reply", nil)
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	if response == "" {
		response = fmt.Sprintf("No string found for %s", input.Body.Input)
	}

	out := &chatOutput{}
	out.Body.Response = response
	return out, nil
}

func (s *Server) corpusPageHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	entries, err := s.chat.ListCorpora(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing corpora for management page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't list the stored corpora right now.")
	}

	data := templates.CorpusPageData{
		Title:   "Corpora • " + templates.SiteName,
		Corpora: make([]templates.CorpusView, 0, len(entries)),
	}
	for _, entry := range entries {
		if entry.IsActive {
			data.ActiveCorpus = entry.Name
		}
		data.Corpora = append(data.Corpora, templates.CorpusView{Name: entry.Name, Active: entry.IsActive})
	}

	body, err := renderComponent(ctx, templates.CorpusPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering corpus page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the corpus page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) activeCorpusHandler(ctx context.Context, _ *struct{}) (*corpusNameOutput, error) {
	name, err := s.chat.ActiveCorpus(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading active corpus", nil)
		return nil, toHumaError(err)
	}

	out := &corpusNameOutput{}
	out.Body.Name = name
	return out, nil
}

func (s *Server) listCorporaHandler(ctx context.Context, _ *struct{}) (*corpusListOutput, error) {
	entries, err := s.chat.ListCorpora(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing corpora", nil)
		return nil, toHumaError(err)
	}

	out := &corpusListOutput{Body: make([]corpusListEntry, 0, len(entries))}
	for _, entry := range entries {
		out.Body = append(out.Body, corpusListEntry{Name: entry.Name, IsActive: entry.IsActive})
	}
	return out, nil
}

func (s *Server) uploadCorpusHandler(ctx context.Context, input *uploadCorpusInput) (*corpusNameOutput, error) {
	header := firstFile(input.RawBody)
	if header == nil {
		return nil, huma.Error400BadRequest("A corpus file is required.")
	}

	data, err := readFile(header)
	if err != nil {
		s.recordError(ctx, err, "reading uploaded corpus", logrus.Fields{"corpus": header.Filename})
		return nil, huma.Error400BadRequest("The uploaded file could not be read.")
	}

	name, err := s.chat.UploadCorpus(ctx, header.Filename, data)
	if err != nil {
		s.recordError(ctx, err, "uploading corpus", logrus.Fields{"corpus": header.Filename})
		return nil, toHumaError(err)
	}

	out := &corpusNameOutput{}
	out.Body.Name = name
	return out, nil
}

func (s *Server) chooseCorpusHandler(ctx context.Context, input *chooseCorpusInput) (*corpusNameOutput, error) {
	name, err := s.chat.ChooseCorpus(ctx, input.Body.Corpus)
	if err != nil {
		if !eris.Is(err, corpus.ErrNotFound) {
			s.recordError(ctx, err, "choosing corpus", logrus.Fields{"corpus": input.Body.Corpus})
		}
		return nil, toHumaError(err)
	}

	out := &corpusNameOutput{}
	out.Body.Name = name
	return out, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Storage = "ok"
	resp.Body.Model = "ready"

	if err := s.chat.Health(ctx); err != nil {
		s.recordError(ctx, err, "health check failed", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		if eris.Is(err, corpus.ErrStorage) {
			resp.Body.Storage = "error"
		} else {
			resp.Body.Model = "unavailable"
		}
	}

	return resp, nil
}

// firstFile prefers the "file" field and otherwise takes the first file part by field name.
func firstFile(form multipart.Form) *multipart.FileHeader {
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "opening upload %s", header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, eris.Wrapf(err, "reading upload %s", header.Filename)
	}
	return data, nil
}

func toHumaError(err error) huma.StatusError {
	switch {
	case eris.Is(err, corpus.ErrNotFound):
		return huma.Error404NotFound("That corpus does not exist.")
	case eris.Is(err, corpus.ErrStorage):
		return huma.Error502BadGateway("The corpus storage is unavailable right now.")
	default:
		return huma.Error500InternalServerError(errorFallbackMessage)
	}
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		for _, status := range append([]int{stdhttp.StatusOK}, statuses...) {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	component := templates.ErrorPage(templates.ErrorPageData{
		Title:       label + " • " + templates.SiteName,
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

