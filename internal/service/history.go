package service

import (
	"fmt"

	"object-detector-go/internal/model"
	"object-detector-go/internal/repository"
	"object-detector-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HistoryService сервис истории детекций поверх базы данных
type HistoryService struct {
	repo   repository.DetectionRepository
	logger *logrus.Logger
}

// ListDetectionsResponse ответ со списком записей истории
type ListDetectionsResponse struct {
	Records []*model.DetectionRecord `json:"records"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
}

// NewHistoryService создает новый сервис истории
func NewHistoryService(repo repository.DetectionRepository, logger *logrus.Logger) *HistoryService {
	return &HistoryService{
		repo:   repo,
		logger: logger,
	}
}

// Record сохраняет результат детекции в истории и возвращает ID записи
func (s *HistoryService) Record(result *models.DetectionResult) (string, error) {
	recordID := uuid.New().String()
	s.logger.Infof("Сохраняем запись истории %s для %s", recordID, result.ImageName)

	record := &model.DetectionRecord{
		ID:              recordID,
		ImageName:       result.ImageName,
		ImageWidth:      result.ImageSize.Width,
		ImageHeight:     result.ImageSize.Height,
		DetectionsCount: result.DetectionsCount,
		ResultImage:     result.ResultImage,
		ResultJSON:      result.ResultJSON,
	}

	for _, det := range result.Detections {
		record.Objects = append(record.Objects, model.DetectionObject{
			RecordID:   recordID,
			ObjectID:   int32(det.ObjectID),
			Class:      det.Class,
			Confidence: det.Confidence,
			XMin:       det.BoundingBox.XMin,
			YMin:       det.BoundingBox.YMin,
			XMax:       det.BoundingBox.XMax,
			YMax:       det.BoundingBox.YMax,
			CenterX:    det.Center.X,
			CenterY:    det.Center.Y,
		})
	}

	if err := s.repo.Create(record); err != nil {
		return "", fmt.Errorf("failed to save detection record: %w", err)
	}

	s.logger.Infof("Запись истории %s сохранена с %d объектами", recordID, len(record.Objects))
	return recordID, nil
}

// GetByID получает запись истории по ID
func (s *HistoryService) GetByID(recordID string) (*model.DetectionRecord, error) {
	s.logger.Infof("Получаем запись истории %s", recordID)

	record, err := s.repo.GetByID(recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection record: %w", err)
	}

	return record, nil
}

// List получает список записей истории с пагинацией
func (s *HistoryService) List(page, pageSize int) (*ListDetectionsResponse, error) {
	s.logger.Infof("Получаем список записей истории: страница %d, размер %d", page, pageSize)

	records, total, err := s.repo.List(page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list detection records: %w", err)
	}

	return &ListDetectionsResponse{
		Records: records,
		Total:   total,
		Page:    page,
		Size:    pageSize,
	}, nil
}

// Delete удаляет запись истории. Артефакты на диске не удаляются.
func (s *HistoryService) Delete(recordID string) error {
	s.logger.Infof("Удаляем запись истории %s", recordID)

	if err := s.repo.Delete(recordID); err != nil {
		return fmt.Errorf("failed to delete detection record: %w", err)
	}

	s.logger.Infof("Запись истории %s удалена", recordID)
	return nil
}
