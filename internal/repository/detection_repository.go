package repository

import (
	"fmt"

	"object-detector-go/internal/model"

	"gorm.io/gorm"
)

// DetectionRepository интерфейс для работы с историей детекций
type DetectionRepository interface {
	Create(record *model.DetectionRecord) error
	GetByID(id string) (*model.DetectionRecord, error)
	List(page, pageSize int) ([]*model.DetectionRecord, int64, error)
	Delete(id string) error
}

// detectionRepository реализация DetectionRepository
type detectionRepository struct {
	db *gorm.DB
}

// NewDetectionRepository создает новый instance DetectionRepository
func NewDetectionRepository(db *gorm.DB) DetectionRepository {
	return &detectionRepository{
		db: db,
	}
}

// Create создает новую запись истории детекции
func (r *detectionRepository) Create(record *model.DetectionRecord) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Сначала создаем запись; объекты вставляем отдельно ниже
	if err := tx.Omit("Objects").Create(record).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create detection record: %w", err)
	}

	// Затем создаем найденные объекты
	for i := range record.Objects {
		record.Objects[i].ID = 0 // Обнуляем ID для auto-increment
		record.Objects[i].RecordID = record.ID

		if err := tx.Create(&record.Objects[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create detection object %d: %w", i, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByID получает запись истории по ID
func (r *detectionRepository) GetByID(id string) (*model.DetectionRecord, error) {
	var record model.DetectionRecord
	err := r.db.Preload("Objects").Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("detection record with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get detection record: %w", err)
	}
	return &record, nil
}

// List получает список записей истории с пагинацией
func (r *detectionRepository) List(page, pageSize int) ([]*model.DetectionRecord, int64, error) {
	var records []*model.DetectionRecord
	var total int64

	// Подсчитываем общее количество
	if err := r.db.Model(&model.DetectionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count detection records: %w", err)
	}

	// Получаем записи с пагинацией
	offset := (page - 1) * pageSize
	err := r.db.Preload("Objects").
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list detection records: %w", err)
	}

	return records, total, nil
}

// Delete удаляет запись истории по ID.
// Артефакты на диске при этом не трогаются: они пишутся один раз
// и не удаляются автоматически.
func (r *detectionRepository) Delete(id string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// Сначала удаляем объекты
	if err := tx.Where("record_id = ?", id).Delete(&model.DetectionObject{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete detection objects: %w", err)
	}

	// Затем удаляем запись
	result := tx.Where("id = ?", id).Delete(&model.DetectionRecord{})
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete detection record: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		return fmt.Errorf("detection record with id %s not found", id)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
