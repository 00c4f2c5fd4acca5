package templates

// SiteName is shown in page titles and the shared header.
const SiteName = "Chabbo"

// IndexPageData contains dynamic values rendered on the chat page.
type IndexPageData struct {
	Title        string
	ActiveCorpus string
}

// CorpusView is one row of the corpus management table.
type CorpusView struct {
	Name   string
	Active bool
}

// CorpusPageData bundles template data for the corpus management page.
type CorpusPageData struct {
	Title        string
	ActiveCorpus string
	Corpora      []CorpusView
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
