package storage

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"object-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

func setupArtifactStore(t *testing.T) *ArtifactStore {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	store, err := NewArtifactStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}

	return store
}

func TestArtifactBaseNamePattern(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	name := ArtifactBaseName(ts, "holiday photo.jpg")

	if !strings.HasPrefix(name, "result_20250102_030405_") {
		t.Errorf("unexpected name prefix: %s", name)
	}
	if !strings.HasSuffix(name, "_holiday_photo") {
		t.Errorf("unexpected name suffix: %s", name)
	}
	if strings.Contains(name, " ") {
		t.Errorf("name contains spaces: %s", name)
	}
}

func TestArtifactBaseNameNoCollisionSameSecond(t *testing.T) {
	// Одинаковое имя и одна и та же секунда не должны давать коллизию
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	first := ArtifactBaseName(ts, "cat.png")
	second := ArtifactBaseName(ts, "cat.png")

	if first == second {
		t.Errorf("artifact names collided: %s", first)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"cat", "cat"},
		{"my photo", "my_photo"},
		{"../../etc/passwd", "etc_passwd"},
		{"отчет", "file"},
		{"a..b", "a..b"},
		{"", "file"},
	}

	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveAndLookup(t *testing.T) {
	store := setupArtifactStore(t)

	baseName := ArtifactBaseName(time.Now(), "cat.jpg")

	if err := store.SaveImage(baseName, []byte{0xFF, 0xD8, 0xFF}); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if err := store.SaveJSON(baseName, map[string]interface{}{"success": true}); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	if _, found := store.Lookup(baseName + ".jpg"); !found {
		t.Errorf("image artifact %s.jpg not found", baseName)
	}
	if _, found := store.Lookup(baseName + ".json"); !found {
		t.Errorf("json artifact %s.json not found", baseName)
	}
}

func TestLookupMissingFile(t *testing.T) {
	store := setupArtifactStore(t)

	if _, found := store.Lookup("no_such_result.jpg"); found {
		t.Error("Lookup returned a path for a missing artifact")
	}
}

func TestRemoveImageRollsBackArtifact(t *testing.T) {
	store := setupArtifactStore(t)

	baseName := ArtifactBaseName(time.Now(), "dog.jpg")
	if err := store.SaveImage(baseName, []byte("jpeg-bytes")); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	store.RemoveImage(baseName)

	if _, found := store.Lookup(baseName + ".jpg"); found {
		t.Error("image artifact still present after rollback")
	}
}

func TestJSONArtifactRoundTrip(t *testing.T) {
	store := setupArtifactStore(t)

	original := &models.DetectionResult{
		Success:         true,
		ImageName:       "cat.jpg",
		ImageSize:       models.ImageSize{Width: 640, Height: 480},
		DetectionsCount: 2,
		Detections: []models.Detection{
			models.NewDetection(1, "cat", 0.9123, 10.0, 20.0, 110.5, 220.25),
			models.NewDetection(2, "dog", 0.4567, 5.75, 8.5, 55.0, 88.125),
		},
		Timestamp: "2025-01-02T03:04:05Z",
	}

	baseName := ArtifactBaseName(time.Now(), "cat.jpg")
	original.ResultImage = store.ImageURL(baseName)
	original.ResultJSON = store.JSONURL(baseName)

	if err := store.SaveJSON(baseName, original); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	path, found := store.Lookup(baseName + ".json")
	if !found {
		t.Fatal("json artifact not found after save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read json artifact: %v", err)
	}

	var restored models.DetectionResult
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to parse json artifact: %v", err)
	}

	if !reflect.DeepEqual(*original, restored) {
		t.Errorf("json artifact differs from in-memory result:\n%+v\n%+v", *original, restored)
	}
}
