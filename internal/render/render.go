// Package render turns model-written summary notes into typed lines for
// display.
package render

import (
	"strings"
)

type Kind int

const (
	Blank Kind = iota
	Text
	Title
	Bullet
	SubBullet
	Question
	Answer
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Title:
		return "title"
	case Bullet:
		return "bullet"
	case SubBullet:
		return "sub-bullet"
	case Question:
		return "question"
	case Answer:
		return "answer"
	default:
		return "text"
	}
}

type Line struct {
	Kind Kind
	Text string
}

const (
	titleOpen  = "**##"
	titleClose = "##**"
)

var bulletMarks = []string{"• ", "* ", "- "}

// Parse splits notes into lines. Marker prefixes are stripped from the
// returned text except for Q: and A:, which stay as written.
func Parse(notes string) []Line {
	var out []Line
	for _, raw := range strings.Split(notes, "\n") {
		out = append(out, parseLine(raw))
	}
	return out
}

func parseLine(raw string) Line {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Line{Kind: Blank}
	}

	if strings.HasPrefix(s, titleOpen) && strings.HasSuffix(s, titleClose) && len(s) >= len(titleOpen)+len(titleClose) {
		t := strings.TrimSuffix(strings.TrimPrefix(s, titleOpen), titleClose)
		return Line{Kind: Title, Text: strings.TrimSpace(t)}
	}
	if rest, ok := strings.CutPrefix(s, "+ "); ok {
		return Line{Kind: SubBullet, Text: rest}
	}
	for _, m := range bulletMarks {
		if rest, ok := strings.CutPrefix(s, m); ok {
			return Line{Kind: Bullet, Text: rest}
		}
	}
	if strings.HasPrefix(s, "Q: ") {
		return Line{Kind: Question, Text: s}
	}
	if strings.HasPrefix(s, "A: ") {
		return Line{Kind: Answer, Text: s}
	}
	return Line{Kind: Text, Text: s}
}

// Style decorates one line for output.
type Style func(Line) string

// Plain is the terminal style: titles underlined, bullets normalised,
// sub-bullets indented.
func Plain(l Line) string {
	switch l.Kind {
	case Blank:
		return ""
	case Title:
		return l.Text + "\n" + strings.Repeat("=", len([]rune(l.Text)))
	case Bullet:
		return "• " + l.Text
	case SubBullet:
		return "    - " + l.Text
	default:
		return l.Text
	}
}

// ANSI is Plain with terminal colours.
func ANSI(l Line) string {
	const (
		bold  = "\x1b[1m"
		cyan  = "\x1b[36m"
		green = "\x1b[32m"
		reset = "\x1b[0m"
	)
	switch l.Kind {
	case Title:
		return bold + l.Text + reset
	case Question:
		return cyan + l.Text + reset
	case Answer:
		return green + l.Text + reset
	default:
		return Plain(l)
	}
}

func Format(notes string, style Style) string {
	if style == nil {
		style = Plain
	}
	lines := Parse(notes)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = style(l)
	}
	return strings.Join(parts, "\n")
}
