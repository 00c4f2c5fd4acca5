package corpus

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Settings is the single persisted record describing which corpus is active.
type Settings struct {
	ActiveCorpus Selector `json:"active_corpus"`
}

// DefaultSettings returns the record written when no valid settings can be loaded.
func DefaultSettings() Settings {
	return Settings{ActiveCorpus: DefaultSelector()}
}

// EncodeSettings serialises settings into their JSON document form.
func EncodeSettings(settings Settings) ([]byte, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, eris.Wrap(err, "encoding settings")
	}
	return data, nil
}

// DecodeSettings parses a JSON settings document. A document without an active_corpus field is
// rejected rather than silently defaulted.
func DecodeSettings(data []byte) (Settings, error) {
	var doc struct {
		ActiveCorpus *Selector `json:"active_corpus"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Settings{}, eris.Wrap(err, "decoding settings")
	}
	if doc.ActiveCorpus == nil {
		return Settings{}, eris.New("settings are missing active_corpus")
	}
	return Settings{ActiveCorpus: *doc.ActiveCorpus}, nil
}
