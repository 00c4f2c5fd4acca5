package corpus

import (
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "tr": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "blockquote": {}, "pre": {},
}

// IsHTMLName reports whether a corpus name refers to an HTML document.
func IsHTMLName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// PlainText returns the text the generation model should be fed for a corpus. HTML documents are
// reduced to their visible text with one line per block element; everything else passes through.
func PlainText(name, text string) (string, error) {
	if !IsHTMLName(name) {
		return text, nil
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return "", eris.Wrapf(err, "parsing html corpus %s", name)
	}

	var builder strings.Builder
	collectText(&builder, doc)

	lines := strings.Split(builder.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), nil
}

func collectText(builder *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		builder.WriteString(node.Data)
		return
	case html.ElementNode:
		if _, skip := skippedElements[node.Data]; skip {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	_, block := blockElements[node.Data]
	if block && node.Type == html.ElementNode {
		builder.WriteByte('\n')
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(builder, child)
	}

	if block && node.Type == html.ElementNode {
		builder.WriteByte('\n')
	}
}
