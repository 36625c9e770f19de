package upload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	return d
}

func TestSaveAndDelete(t *testing.T) {
	d := newTestDisk(t)

	url, err := d.Save("photo.PNG", bytes.NewReader([]byte("image-bytes")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url: %s", url)
	}

	name := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(d.Dir(), name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected contents: %q", data)
	}

	if err := d.Delete(url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d.Dir(), name)); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, got %v", err)
	}
	// deleting again is a no-op
	if err := d.Delete(url); err != nil {
		t.Fatalf("re-delete: %v", err)
	}
}

func TestSaveRejectsUnsupportedType(t *testing.T) {
	d := newTestDisk(t)

	for _, name := range []string{"doc.pdf", "script.sh", "noext"} {
		if _, err := d.Save(name, bytes.NewReader([]byte("x"))); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", name, err)
		}
	}
}

func TestSaveRejectsOversizedImage(t *testing.T) {
	d := newTestDisk(t)

	big := bytes.NewReader(make([]byte, MaxImageBytes+1))
	if _, err := d.Save("big.jpg", big); err == nil {
		t.Fatal("expected oversized image to be rejected")
	}

	// nothing left behind after the failed save
	entries, err := os.ReadDir(d.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestDeleteIgnoresForeignURLs(t *testing.T) {
	d := newTestDisk(t)

	url, err := d.Save("keep.png", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	// URLs outside the base, and traversal attempts, are harmless no-ops
	if err := d.Delete("/etc/passwd"); err != nil {
		t.Fatalf("foreign url: %v", err)
	}
	if err := d.Delete("/uploads/../" + filepath.Base(d.Dir())); err != nil {
		t.Fatalf("traversal url: %v", err)
	}

	name := strings.TrimPrefix(url, "/uploads/")
	if _, err := os.Stat(filepath.Join(d.Dir(), name)); err != nil {
		t.Fatalf("stored file should survive: %v", err)
	}
}
