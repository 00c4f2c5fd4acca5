package corpus

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultName is the display form of the bundled corpus selector.
const DefaultName = "Default"

const fromFileTag = "FromFile"

// Selector identifies the corpus backing the generation model: either the bundled default text
// or a named file held by the storage backend.
type Selector struct {
	named bool
	path  string
}

// DefaultSelector returns the selector for the bundled corpus.
func DefaultSelector() Selector {
	return Selector{}
}

// NamedFile returns a selector for a stored file identified by path.
func NamedFile(path string) Selector {
	return Selector{named: true, path: path}
}

// ParseSelector converts a display name back into a selector. It never fails: every string other
// than DefaultName is a file path.
func ParseSelector(name string) Selector {
	if name == DefaultName {
		return DefaultSelector()
	}
	return NamedFile(name)
}

// IsDefault reports whether the selector points at the bundled corpus.
func (s Selector) IsDefault() bool {
	return !s.named
}

// Path returns the file path of a named selector and an empty string for the default one.
func (s Selector) Path() string {
	return s.path
}

func (s Selector) String() string {
	if !s.named {
		return DefaultName
	}
	return s.path
}

type fromFilePayload struct {
	Path string `json:"path"`
}

// MarshalJSON encodes the default selector as the string tag "Default" and a named file as
// {"FromFile":{"path":"..."}}.
func (s Selector) MarshalJSON() ([]byte, error) {
	if !s.named {
		return json.Marshal(DefaultName)
	}
	return json.Marshal(map[string]fromFilePayload{fromFileTag: {Path: s.path}})
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (s *Selector) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return eris.Wrap(err, "decoding corpus selector tag")
		}
		if tag != DefaultName {
			return eris.Errorf("unknown corpus selector tag: %s", tag)
		}
		*s = DefaultSelector()
		return nil
	}

	var variants map[string]json.RawMessage
	if err := json.Unmarshal(data, &variants); err != nil {
		return eris.Wrap(err, "decoding corpus selector")
	}

	raw, ok := variants[fromFileTag]
	if !ok || len(variants) != 1 {
		return eris.New("corpus selector must contain exactly one FromFile variant")
	}

	var payload struct {
		Path *string `json:"path"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return eris.Wrap(err, "decoding FromFile selector")
	}
	if payload.Path == nil {
		return eris.New("FromFile selector is missing path")
	}

	*s = NamedFile(*payload.Path)
	return nil
}
