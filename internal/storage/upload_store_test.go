package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func setupUploadStore(t *testing.T) *UploadStore {
	t.Helper()

	store, err := NewUploadStore(t.TempDir(), logrus.New())
	if err != nil {
		t.Fatalf("Failed to create upload store: %v", err)
	}

	return store
}

func TestUploadSave(t *testing.T) {
	store := setupUploadStore(t)

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	path, err := store.Save(ts, "my cat.PNG", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	filename := filepath.Base(path)
	if !strings.HasPrefix(filename, "20250102_030405_") {
		t.Errorf("unexpected staged name prefix: %s", filename)
	}
	if !strings.HasSuffix(filename, "_my_cat.png") {
		t.Errorf("unexpected staged name suffix: %s", filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read staged file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("staged content mismatch: %q", data)
	}
}

func TestUploadSaveNoCollisionSameSecond(t *testing.T) {
	store := setupUploadStore(t)

	ts := time.Now()
	first, err := store.Save(ts, "cat.png", []byte("a"))
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	second, err := store.Save(ts, "cat.png", []byte("b"))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	if first == second {
		t.Errorf("staged names collided: %s", first)
	}
}

func TestUploadRemove(t *testing.T) {
	store := setupUploadStore(t)

	path, err := store.Save(time.Now(), "cat.png", []byte("a"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	store.Remove(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("staged file still present after Remove")
	}
}
