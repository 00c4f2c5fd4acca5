package corpus

import (
	"encoding/json"
	"testing"
)

func TestParseSelectorDefault(t *testing.T) {
	t.Parallel()

	selector := ParseSelector("Default")
	if !selector.IsDefault() {
		t.Fatalf("expected Default to parse to the default selector")
	}
	if selector.String() != "Default" {
		t.Fatalf("expected display name Default, got %q", selector.String())
	}
}

func TestParseSelectorNamedFileRoundTrip(t *testing.T) {
	t.Parallel()

	names := []string{"gray.txt", "/abs/path/corpus.txt", "", "default", "DEFAULT", " Default"}
	for _, name := range names {
		selector := ParseSelector(name)
		if selector.IsDefault() {
			t.Fatalf("expected %q to parse to a named file", name)
		}
		if selector.Path() != name {
			t.Fatalf("expected path %q, got %q", name, selector.Path())
		}
		if selector.String() != name {
			t.Fatalf("expected display name %q, got %q", name, selector.String())
		}
	}
}

func TestSelectorJSONEncoding(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(DefaultSelector())
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `"Default"` {
		t.Fatalf("expected default selector to encode as tag, got %s", data)
	}

	data, err = json.Marshal(NamedFile("gray.txt"))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `{"FromFile":{"path":"gray.txt"}}` {
		t.Fatalf("unexpected named file encoding %s", data)
	}

	var decoded Selector
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if decoded != NamedFile("gray.txt") {
		t.Fatalf("expected decoded selector to equal original, got %#v", decoded)
	}
}

func TestSelectorUnmarshalRejectsUnknownShapes(t *testing.T) {
	t.Parallel()

	inputs := []string{`"Other"`, `{"Elsewhere":{"path":"x"}}`, `{"FromFile":{}}`, `42`}
	for _, input := range inputs {
		var selector Selector
		if err := json.Unmarshal([]byte(input), &selector); err == nil {
			t.Fatalf("expected error decoding %s", input)
		}
	}
}
