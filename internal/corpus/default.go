package corpus

import _ "embed"

//go:embed default_corpus.txt
var defaultCorpus string

// DefaultText returns the corpus bundled into the binary.
func DefaultText() string {
	return defaultCorpus
}
