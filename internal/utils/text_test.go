package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
	}
	for _, c := range cases {
		if got := utils.FormatSize(c.in); got != c.want {
			t.Errorf("FormatSize(%d)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestFormatDecimalSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{4, "4 B"},
		{2500, "2.50 KB"},
		{50_000_000, "50 MB"},
		{55_500_000, "55.50 MB"},
	}
	for _, c := range cases {
		if got := utils.FormatDecimalSize(c.in); got != c.want {
			t.Errorf("FormatDecimalSize(%d)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := utils.Truncate("hello", 10); got != "hello" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	got := utils.Truncate(strings.Repeat("é", 20), 5)
	if n := len([]rune(got)); n != 5 {
		t.Fatalf("runes=%d want 5", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis: %q", got)
	}
	if utils.Truncate("abc", 0) != "" {
		t.Fatalf("expected empty for zero limit")
	}
}

func TestFormatNumber(t *testing.T) {
	if got := utils.FormatNumber(120); got != "120" {
		t.Fatalf("got %q", got)
	}
	if got := utils.FormatNumber(3.14159); got != "3.142" {
		t.Fatalf("got %q", got)
	}
}
