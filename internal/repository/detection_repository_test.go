package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"object-detector-go/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) DetectionRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&model.DetectionRecord{}, &model.DetectionObject{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return NewDetectionRepository(db)
}

func makeRecord(t *testing.T, imageName string, objects int) *model.DetectionRecord {
	t.Helper()

	record := &model.DetectionRecord{
		ID:              uuid.New().String(),
		ImageName:       imageName,
		ImageWidth:      640,
		ImageHeight:     480,
		DetectionsCount: objects,
		ResultImage:     "/static/results/image/result_x_" + imageName,
		ResultJSON:      "/static/results/json/result_x_" + imageName,
	}

	for i := 0; i < objects; i++ {
		record.Objects = append(record.Objects, model.DetectionObject{
			ObjectID:   int32(i + 1),
			Class:      "person",
			Confidence: 0.9,
			XMin:       10, YMin: 20, XMax: 30, YMax: 40,
			CenterX: 20, CenterY: 30,
		})
	}

	return record
}

func TestCreateAndGetByID(t *testing.T) {
	repo := setupTestRepo(t)

	record := makeRecord(t, "cat.jpg", 2)
	if err := repo.Create(record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.ImageName != "cat.jpg" {
		t.Errorf("ImageName = %q, want cat.jpg", got.ImageName)
	}
	if len(got.Objects) != 2 {
		t.Errorf("Objects count = %d, want 2", len(got.Objects))
	}
	if got.Objects[0].ObjectID != 1 {
		t.Errorf("first ObjectID = %d, want 1", got.Objects[0].ObjectID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetByID(uuid.New().String())
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListPagination(t *testing.T) {
	repo := setupTestRepo(t)

	for i := 0; i < 5; i++ {
		if err := repo.Create(makeRecord(t, fmt.Sprintf("img%d.jpg", i), 1)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, total, err := repo.List(1, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(records) != 3 {
		t.Errorf("page size = %d, want 3", len(records))
	}

	records, _, err = repo.List(2, 3)
	if err != nil {
		t.Fatalf("List page 2 failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("second page size = %d, want 2", len(records))
	}
}

func TestDeleteRemovesRecordAndObjects(t *testing.T) {
	repo := setupTestRepo(t)

	record := makeRecord(t, "cat.jpg", 3)
	if err := repo.Create(record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(record.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repo.GetByID(record.ID); err == nil {
		t.Error("record still present after delete")
	}
}

func TestDeleteNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.Delete(uuid.New().String()); err == nil {
		t.Fatal("expected error when deleting missing record")
	}
}
