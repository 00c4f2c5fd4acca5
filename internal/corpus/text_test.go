package corpus

import "testing"

func TestPlainTextPassesThroughNonHTML(t *testing.T) {
	t.Parallel()

	text, err := PlainText("gray.txt", "<p>kept as is</p>")
	if err != nil {
		t.Fatalf("PlainText returned error: %v", err)
	}
	if text != "<p>kept as is</p>" {
		t.Fatalf("expected text to pass through, got %q", text)
	}
}

func TestPlainTextExtractsHTMLBlocks(t *testing.T) {
	t.Parallel()

	input := `<html><head><title>skip</title><style>p{}</style></head>
<body><h1>The  Title</h1><p>The cat <b>sat</b>.</p><script>alert(1)</script><p>The dog ran.</p></body></html>`

	text, err := PlainText("story.HTML", input)
	if err != nil {
		t.Fatalf("PlainText returned error: %v", err)
	}

	expected := "The Title\nThe cat sat.\nThe dog ran."
	if text != expected {
		t.Fatalf("expected %q, got %q", expected, text)
	}
}
