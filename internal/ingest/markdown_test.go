package ingest

import (
	"errors"
	"strings"
	"testing"
)

type boomReader struct{}

func (boomReader) Read(_ []byte) (int, error) { return 0, errors.New("boom") }

func TestParseMarkdown_HeadingsAndParagraphs(t *testing.T) {
	doc := `
# Pastoral tone

Speak gently and   without hurry when someone is grieving.

Offer to pray before offering advice of any kind.

## Scripture use

Quote sparingly and always give the reference.
`
	got, err := ParseMarkdown(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	want := []Section{
		{Title: "Pastoral tone", Content: "Speak gently and without hurry when someone is grieving."},
		{Title: "Pastoral tone (2)", Content: "Offer to pray before offering advice of any kind."},
		{Title: "Scripture use", Content: "Quote sparingly and always give the reference."},
	}
	if len(got) != len(want) {
		t.Fatalf("sections = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("section %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseMarkdown_MultiLineParagraphAndUntitled(t *testing.T) {
	doc := "Greet people by name whenever\nthe name is known to you.\n\ntiny\n"
	got, err := ParseMarkdown(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("short paragraph should be dropped: %+v", got)
	}
	if got[0].Title != "Greet people by name whenever" {
		t.Fatalf("untitled section title = %q", got[0].Title)
	}
	if got[0].Content != "Greet people by name whenever\nthe name is known to you." {
		t.Fatalf("content = %q", got[0].Content)
	}

	all, _ := ParseMarkdown(strings.NewReader(doc), WithMinRunes(0))
	if len(all) != 2 {
		t.Fatalf("WithMinRunes(0) should keep short paragraphs: %+v", all)
	}
	same, _ := ParseMarkdown(strings.NewReader(doc), WithMinRunes(-1))
	if len(same) != 1 {
		t.Fatalf("negative WithMinRunes should be ignored: %+v", same)
	}
}

func TestParseMarkdown_TablesFlattened(t *testing.T) {
	doc := `# Feast days

| Text | |
|:----|---:|
| Christmas | December 25 is celebrated with carols |
| | Easter Sunday moves with the lunar calendar |
`
	got, err := ParseMarkdown(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("table rows = %+v", got)
	}
	if got[0].Content != "Christmas December 25 is celebrated with carols" {
		t.Fatalf("row 1 = %q", got[0].Content)
	}
	if got[1].Title != "Feast days (2)" || got[1].Content != "Easter Sunday moves with the lunar calendar" {
		t.Fatalf("row 2 = %+v", got[1])
	}
}

func TestParseMarkdown_ReaderErrors(t *testing.T) {
	if _, err := ParseMarkdown(boomReader{}); err == nil {
		t.Fatalf("expected reader error")
	}
	long := strings.Repeat("x", 5*1024*1024)
	if _, err := ParseMarkdown(strings.NewReader(long)); err == nil {
		t.Fatalf("expected token too long")
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Fatalf("clip short = %q", got)
	}
	if got := clip("alpha beta gamma delta", 15); got != "alpha beta…" {
		t.Fatalf("clip at word = %q", got)
	}
	if got := clip("abcdefghijklmnop", 5); got != "abcde…" {
		t.Fatalf("clip no space = %q", got)
	}
}

func TestTableFact(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"| a | b |":       {"a b", true},
		"|---|:--:|":      {"", false},
		"| |  |":          {"", false},
		"| TEXT |":        {"", false},
		"| only one |":    {"only one", true},
		"| x | | y | z |": {"x y z", true},
	}
	for in, tc := range cases {
		got, ok := tableFact(in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("tableFact(%q) = %q,%v want %q,%v", in, got, ok, tc.want, tc.ok)
		}
	}
}
