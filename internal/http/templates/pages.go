package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// IndexPage renders the chat page.
func IndexPage(data IndexPageData) templ.Component {
	return layout(pageTitle(data.Title), templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="chat"><p class="active">Talking from <strong id="active-corpus">`)
		h.text(data.ActiveCorpus)
		h.raw(`</strong></p>`,
			`<ol id="transcript" class="transcript"></ol>`,
			`<form id="chat-form" autocomplete="off">`,
			`<input id="chat-input" name="input" placeholder="Start with a word">`,
			`<button type="submit">Send</button></form></section>`,
			`<script src="/static/chat.js" defer></script>`)
		return h.err
	}))
}

// CorpusPage renders the corpus management page.
func CorpusPage(data CorpusPageData) templ.Component {
	return layout(pageTitle(data.Title), templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="corpora"><h1>Corpora</h1><p class="active">Active: <strong id="active-corpus">`)
		h.text(data.ActiveCorpus)
		h.raw(`</strong></p><ul id="corpus-list">`)
		for _, item := range data.Corpora {
			h.raw(`<li`)
			if item.Active {
				h.raw(` class="is-active"`)
			}
			h.raw(`><span>`)
			h.text(item.Name)
			h.raw(`</span><button type="button" data-corpus="`)
			h.text(item.Name)
			h.raw(`">Use</button></li>`)
		}
		h.raw(`</ul>`,
			`<form id="upload-form" enctype="multipart/form-data">`,
			`<input type="file" name="file" required>`,
			`<button type="submit">Upload and use</button></form>`,
			`<p id="corpus-status" role="status"></p></section>`,
			`<script src="/static/corpus.js" defer></script>`)
		return h.err
	}))
}

// ErrorPage renders an error view with a status label and message.
func ErrorPage(data ErrorPageData) templ.Component {
	return layout(pageTitle(data.Title), templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="error"><h1>`)
		h.text(data.StatusLabel)
		h.raw(`</h1><p>`)
		h.text(data.Message)
		h.raw(`</p><p><a href="/">Back to the chat</a></p></section>`)
		return h.err
	}))
}
