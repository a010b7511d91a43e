package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	// Структурная проверка и декодирование всех разрешенных форматов
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"object-detector-go/internal/detector"
	"object-detector-go/internal/storage"
	"object-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	// ErrInvalidImage входные данные не являются корректным изображением
	ErrInvalidImage = errors.New("file must be a valid image")

	// ErrModelNotReady модель детекции еще не загружена
	ErrModelNotReady = errors.New("model not loaded")
)

// DetectionService сервис детекции объектов: декодирование, инференс,
// разбор результатов, отрисовка рамок и сохранение артефактов
type DetectionService struct {
	engine  *detector.Engine
	store   *storage.ArtifactStore
	history *HistoryService
	logger  *logrus.Logger
}

// NewDetectionService создает новый сервис детекции.
// history может быть nil: история — индекс поверх артефактов, не их источник.
func NewDetectionService(engine *detector.Engine, store *storage.ArtifactStore, history *HistoryService, logger *logrus.Logger) *DetectionService {
	return &DetectionService{
		engine:  engine,
		store:   store,
		history: history,
		logger:  logger,
	}
}

// Detect выполняет полный конвейер детекции для одного изображения.
// Либо оба артефакта (изображение и JSON) существуют после успеха,
// либо ни одного после ошибки.
func (s *DetectionService) Detect(filename string, imageData []byte) (*models.DetectionResult, error) {
	if !s.engine.Ready() {
		return nil, ErrModelNotReady
	}

	s.logger.Infof("Обрабатываем изображение: %s", filename)

	// Декодируем изображение
	decoded, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	s.logger.Debugf("Изображение декодировано: формат %s", format)

	// Приводим к трехканальному RGB без изменения геометрии: координаты
	// рамок остаются валидными относительно исходных ширины и высоты
	mat, err := gocv.ImageToMatRGB(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	width := mat.Cols()
	height := mat.Rows()

	// Один синхронный вызов модели, без повторов и батчинга
	raw, err := s.engine.Detect(mat)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// Разбираем сырой выход в стабильную схему, порядок модели сохраняется
	detections := make([]models.Detection, 0, len(raw))
	for i, det := range raw {
		detections = append(detections, models.NewDetection(
			i+1,
			det.Class,
			float64(det.Confidence),
			float64(det.Box.Min.X),
			float64(det.Box.Min.Y),
			float64(det.Box.Max.X),
			float64(det.Box.Max.Y),
		))
	}

	s.logger.Infof("Найдено %d объектов", len(detections))

	// Рисуем рамки на копии изображения
	annotated, err := s.engine.Annotate(mat, detections)
	if err != nil {
		return nil, fmt.Errorf("failed to render annotated image: %w", err)
	}

	// Собираем полный результат с URL обоих артефактов до записи,
	// чтобы JSON артефакт был точным зеркалом ответа
	now := time.Now()
	baseName := storage.ArtifactBaseName(now, filename)

	result := &models.DetectionResult{
		Success:   true,
		ImageName: filename,
		ImageSize: models.ImageSize{
			Width:  width,
			Height: height,
		},
		DetectionsCount: len(detections),
		Detections:      detections,
		ResultImage:     s.store.ImageURL(baseName),
		ResultJSON:      s.store.JSONURL(baseName),
		Timestamp:       now.Format(time.RFC3339),
	}

	// Сохраняем артефакты: сначала изображение, затем JSON.
	// При ошибке записи JSON изображение откатывается.
	if err := s.store.SaveImage(baseName, annotated); err != nil {
		return nil, err
	}

	if err := s.store.SaveJSON(baseName, result); err != nil {
		s.store.RemoveImage(baseName)
		return nil, err
	}

	// Индексируем результат в истории. Ошибка индекса не отменяет
	// успешную детекцию: источник истины — артефакты.
	if s.history != nil {
		if _, err := s.history.Record(result); err != nil {
			s.logger.Warnf("Не удалось сохранить запись истории: %v", err)
		}
	}

	return result, nil
}

// Ready сообщает готовность модели
func (s *DetectionService) Ready() bool {
	return s.engine.Ready()
}
