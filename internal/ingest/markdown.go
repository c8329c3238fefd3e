// Package ingest turns authoring documents into draft overlay entries.
//
// A Markdown document is split into sections: a heading line names the
// entries that follow it, blank lines separate paragraphs, and table rows
// are flattened into one fact per row. Paragraphs that are lexical near
// duplicates of entries already in the target scope are skipped.
package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxTitleRunes bounds derived titles; entry titles allow 255.
const maxTitleRunes = 80

// Section is one paragraph of imported content with the title it will be
// created under.
type Section struct {
	Title   string
	Content string
}

// ParseOption tunes ParseMarkdown.
type ParseOption func(*parseConfig)

type parseConfig struct {
	minRunes int
}

// WithMinRunes drops paragraphs shorter than n runes. Negative values are
// ignored.
func WithMinRunes(n int) ParseOption {
	return func(c *parseConfig) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// ParseMarkdown reads r fully and returns its sections in document order.
// Headings are consumed as titles and never become content. When several
// paragraphs share a heading, later ones get a " (2)", " (3)" suffix.
// Paragraphs with no heading above them are titled by their first words.
func ParseMarkdown(r io.Reader, opts ...ParseOption) ([]Section, error) {
	cfg := parseConfig{minRunes: 20}
	for _, o := range opts {
		o(&cfg)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		out     []Section
		heading string
		seen    = map[string]int{}
		para    []string
	)

	flush := func() {
		text := normalizeWhitespace(strings.TrimSpace(strings.Join(para, "\n")))
		para = para[:0]
		if text == "" || utf8.RuneCountInString(text) < cfg.minRunes {
			return
		}
		title := heading
		if title == "" {
			title = leadingWords(text)
		}
		seen[title]++
		if n := seen[title]; n > 1 {
			title += " (" + strconv.Itoa(n) + ")"
		}
		out = append(out, Section{Title: title, Content: text})
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			flush()
			heading = clip(strings.TrimSpace(strings.TrimLeft(line, "#")), maxTitleRunes)
		case strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|"):
			// A table row is a fact of its own.
			if fact, ok := tableFact(line); ok {
				flush()
				para = append(para, fact)
				flush()
			}
		default:
			para = append(para, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

// tableFact joins the non-empty cells of a "| a | b |" row. Separator rows
// (only dashes and colons) and header cells reading "text" yield nothing.
func tableFact(line string) (string, bool) {
	cols := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, 0, len(cols))
	allSep := true
	for _, c := range cols {
		cell := strings.TrimSpace(c)
		if strings.Trim(cell, ":-") != "" {
			allSep = false
		}
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	if allSep || len(cells) == 0 {
		return "", false
	}
	fact := strings.Join(cells, " ")
	if strings.EqualFold(fact, "text") {
		return "", false
	}
	return fact, true
}

// leadingWords titles an untitled paragraph by its first line, clipped at
// a word boundary.
func leadingWords(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	return clip(first, maxTitleRunes)
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)[:max]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}

// normalizeWhitespace collapses runs of spaces and tabs, keeping newlines.
func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
