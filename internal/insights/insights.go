// Package insights splits the AI narrative into typed blocks.
package insights

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindProse Kind = iota
	KindHeading
	KindCallout
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindCallout:
		return "callout"
	}
	return "prose"
}

// Block is one paragraph-level unit of the narrative.
//
//	Heading: Level and Text are set.
//	Callout: Number, Text (the emphasized title) and Body are set.
//	Prose:   Text holds the paragraph verbatim.
type Block struct {
	Kind   Kind
	Level  int
	Number int
	Text   string
	Body   string
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	calloutRe = regexp.MustCompile(`^(\d+)\.\s+\*\*(.+?)\*\*\s*[:\-–]?\s*(.*)$`)
)

// Parse splits text on blank lines and classifies each block. It never fails:
// anything that is not a heading or a numbered callout is prose.
func Parse(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []Block
	for _, para := range splitParagraphs(text) {
		out = append(out, classify(para)...)
	}
	return out
}

func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	flush()
	return paras
}

func classify(para string) []Block {
	first, rest, _ := strings.Cut(para, "\n")
	trimmed := strings.TrimSpace(first)
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		blocks := []Block{{Kind: KindHeading, Level: len(m[1]), Text: m[2]}}
		if strings.TrimSpace(rest) != "" {
			blocks = append(blocks, classify(rest)...)
		}
		return blocks
	}
	if m := calloutRe.FindStringSubmatch(trimmed); m != nil {
		n, _ := strconv.Atoi(m[1])
		body := strings.TrimSpace(m[3])
		if r := strings.TrimSpace(rest); r != "" {
			if body != "" {
				body += "\n"
			}
			body += r
		}
		return []Block{{Kind: KindCallout, Number: n, Text: m[2], Body: body}}
	}
	return []Block{{Kind: KindProse, Text: para}}
}
