package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"object-detector-go/internal/service"
	"object-detector-go/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// setupDetector собирает роутер сервиса детекции без загруженной модели
func setupDetector(t *testing.T) (*gin.Engine, *storage.ArtifactStore) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	store, err := storage.NewArtifactStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}

	detection := service.NewDetectionService(nil, store, nil, logger)

	h := NewDetectHandler(detection, store, "models/yolov5n.onnx", logger)

	router := gin.New()
	h.RegisterRoutes(router)

	return router, store
}

func TestDetectModelNotReady(t *testing.T) {
	router, _ := setupDetector(t)

	// Модель не загружена: запрос не ставится в очередь, а сразу отклоняется
	req := makeUploadRequest(t, "file", "cat.png", makePNG(t))
	req.URL.Path = "/detect"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["detail"] != "Model not loaded" {
		t.Errorf("detail = %v, want Model not loaded", body["detail"])
	}
}

func TestHealthReportsModelNotLoaded(t *testing.T) {
	router, _ := setupDetector(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["model_loaded"] != false {
		t.Errorf("model_loaded = %v, want false", body["model_loaded"])
	}
}

func TestLivenessAlwaysHealthy(t *testing.T) {
	router, _ := setupDetector(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestLivenessReportsConfiguredModel(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	store, err := storage.NewArtifactStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}

	detection := service.NewDetectionService(nil, store, nil, logger)
	h := NewDetectHandler(detection, store, "models/custom-net.onnx", logger)

	router := gin.New()
	h.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["model"] != "custom-net" {
		t.Errorf("model = %v, want custom-net", body["model"])
	}
}

func TestGetResultNotFound(t *testing.T) {
	router, _ := setupDetector(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results/no_such_file.jpg", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetResultServesArtifact(t *testing.T) {
	router, store := setupDetector(t)

	baseName := storage.ArtifactBaseName(time.Now(), "cat.jpg")
	if err := store.SaveImage(baseName, []byte("jpeg-bytes")); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/results/"+baseName+".jpg", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "jpeg-bytes" {
		t.Errorf("unexpected artifact body: %q", w.Body.String())
	}
}
