package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/unstructiq-cli/internal/utils"
)

func TestSafeWriteFileCreatesParent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "out.json")
	if err := utils.SafeWriteFile(p, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `{"a":1}` {
		t.Fatalf("unexpected content: %s", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestIndentJSON(t *testing.T) {
	out := utils.IndentJSON([]byte(`{"a":1}`))
	if string(out) != "{\n  \"a\": 1\n}" {
		t.Fatalf("unexpected: %q", out)
	}
	bad := []byte("not json")
	if string(utils.IndentJSON(bad)) != "not json" {
		t.Fatalf("invalid input should pass through")
	}
}

func TestIndentJSONKeepsDocumentVerbatim(t *testing.T) {
	raw := []byte(`{"z":1,"job_id":12345678901234567891,"insights":"a < b & c"}` + "\n")
	want := "{\n  \"z\": 1,\n  \"job_id\": 12345678901234567891,\n  \"insights\": \"a < b & c\"\n}"
	if got := string(utils.IndentJSON(raw)); got != want {
		t.Fatalf("IndentJSON changed the document:\n got %s\nwant %s", got, want)
	}
}
