package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(value string) {
	h.raw(templ.EscapeString(value))
}

func (h *htmlWriter) render(ctx context.Context, component templ.Component) {
	if h.err != nil {
		return
	}
	h.err = component.Render(ctx, h.w)
}

// layout wraps content in the shared document shell.
func layout(title string, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="/static/app.css"></head><body>`,
			`<header><a class="brand" href="/">`, SiteName, `</a>`,
			`<nav><a href="/">Chat</a><a href="/corpus">Corpora</a></nav></header><main>`)
		h.render(ctx, content)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

func pageTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return SiteName
	}
	return title
}
