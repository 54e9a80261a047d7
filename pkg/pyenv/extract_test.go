package pyenv

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/schollz/progressbar/v3"
)

func TestEntryDest(t *testing.T) {
	cases := []struct {
		item  string
		strip int
		want  string
	}{
		{"python/bin/python3", 1, filepath.Join("dest", "bin", "python3")},
		{"python/bin/python3", 0, filepath.Join("dest", "python", "bin", "python3")},
		{"python", 1, ""},
		{"./python/README", 1, filepath.Join("dest", "README")},
	}

	for _, tc := range cases {
		got := entryDest("dest", tc.item, tc.strip)
		if got != tc.want {
			t.Errorf("entryDest(%q, strip=%d) = %q, want %q", tc.item, tc.strip, got, tc.want)
		}
	}
}

func TestExtractorForUnsupportedFormat(t *testing.T) {
	_, err := extractorFor("https://example.org/python.rar")
	if err == nil {
		t.Fatal("expected an error for an unsupported archive format")
	}
}

func TestExtractTarGz(t *testing.T) {
	archive := buildRuntimeArchive(t)

	archivePath := filepath.Join(t.TempDir(), "runtime.tar.gz")
	err := os.WriteFile(archivePath, archive, 0660)
	if err != nil {
		t.Fatal(err)
	}

	handle, err := os.Open(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Close()

	extract, err := extractorFor("runtime.tar.gz")
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "runtime")
	bar := progressbar.NewOptions64(int64(len(archive)), progressbar.OptionSetVisibility(false))
	err = extract(handle, bar, dest, RuntimeSpec{Strip: 1})
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	extracted := filepath.Join(dest, "bin", "python3")
	fi, err := os.Stat(extracted)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", extracted, err)
	}

	if runtime.GOOS != "windows" && fi.Mode()&0100 == 0 {
		t.Errorf("%s lost its executable bit (%v)", extracted, fi.Mode())
	}
}
