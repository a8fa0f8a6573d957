package files

import (
	"path/filepath"
	"strings"
)

// Kind is the advertised category of a selected file. It is derived from the
// extension and only used for display; the server decides what it can parse.
type Kind string

const (
	KindCSV     Kind = "csv"
	KindJSON    Kind = "json"
	KindExcel   Kind = "excel"
	KindText    Kind = "text"
	KindPDF     Kind = "pdf"
	KindUnknown Kind = "unknown"
)

// Matcher reports whether a filename belongs to a kind.
type Matcher interface {
	Kind() Kind
	Extensions() []string
}

type extMatcher struct {
	kind Kind
	exts []string
}

func (m extMatcher) Kind() Kind           { return m.kind }
func (m extMatcher) Extensions() []string { return m.exts }

var registry []Matcher

// Register adds a matcher to the registry. Later registrations lose ties.
func Register(m Matcher) {
	registry = append(registry, m)
}

func init() {
	Register(extMatcher{KindCSV, []string{".csv"}})
	Register(extMatcher{KindJSON, []string{".json"}})
	Register(extMatcher{KindExcel, []string{".xlsx", ".xls"}})
	Register(extMatcher{KindText, []string{".txt"}})
	Register(extMatcher{KindPDF, []string{".pdf"}})
}

// KindOf returns the advertised kind for a filename.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return KindUnknown
	}
	for _, m := range registry {
		for _, e := range m.Extensions() {
			if e == ext {
				return m.Kind()
			}
		}
	}
	return KindUnknown
}

// AcceptedExtensions lists every advertised extension in registration order.
func AcceptedExtensions() []string {
	var out []string
	for _, m := range registry {
		out = append(out, m.Extensions()...)
	}
	return out
}

// AcceptHint is the value for an HTML file input accept attribute.
func AcceptHint() string {
	return strings.Join(AcceptedExtensions(), ",")
}
