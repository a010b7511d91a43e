package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"object-detector-go/internal/service"
	"object-detector-go/internal/storage"
	"object-detector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// detectFieldName имя поля файла на эндпоинте детекции
const detectFieldName = "file"

// DetectHandler обрабатывает HTTP запросы сервиса детекции
type DetectHandler struct {
	detection *service.DetectionService
	store     *storage.ArtifactStore
	modelName string
	logger    *logrus.Logger
}

// NewDetectHandler создает новый обработчик детекции.
// modelPath путь к файлу модели из конфигурации, в ответах сервисных
// эндпоинтов отображается его базовое имя без расширения.
func NewDetectHandler(detection *service.DetectionService, store *storage.ArtifactStore, modelPath string, logger *logrus.Logger) *DetectHandler {
	base := filepath.Base(modelPath)
	return &DetectHandler{
		detection: detection,
		store:     store,
		modelName: strings.TrimSuffix(base, filepath.Ext(base)),
		logger:    logger,
	}
}

// RegisterRoutes регистрирует маршруты сервиса детекции
func (h *DetectHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/detect", h.Detect)
	router.GET("/", h.Root)
	router.GET("/health", h.CheckHealth)
	router.GET("/results/:filename", h.GetResult)
}

// Detect обрабатывает запрос на детекцию объектов на изображении
func (h *DetectHandler) Detect(c *gin.Context) {
	// Запросы до окончания загрузки модели не ставятся в очередь
	if !h.detection.Ready() {
		h.logger.Error("Запрос детекции до загрузки модели")
		c.JSON(http.StatusServiceUnavailable, models.ErrorDetail{Detail: "Model not loaded"})
		return
	}

	file, header, err := c.Request.FormFile(detectFieldName)
	if err != nil {
		h.logger.Errorf("Файл отсутствует в запросе: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorDetail{Detail: "File is required"})
		return
	}
	defer file.Close()

	// Тип содержимого должен указывать на изображение
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.logger.Errorf("Недопустимый тип содержимого: %s", contentType)
		c.JSON(http.StatusBadRequest, models.ErrorDetail{Detail: "File must be an image"})
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.logger.Errorf("Ошибка чтения файла: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorDetail{Detail: "Failed to read uploaded file"})
		return
	}

	result, err := h.detection.Detect(header.Filename, imageData)
	if err != nil {
		h.respondDetectionError(c, err)
		return
	}

	h.logger.Infof("Детекция завершена: %d объектов на %s", result.DetectionsCount, result.ImageName)
	c.JSON(http.StatusOK, result)
}

// respondDetectionError переводит ошибку конвейера детекции в HTTP ответ.
// Любая неожиданная ошибка логируется с причиной и отдается наружу
// коротким сообщением.
func (h *DetectHandler) respondDetectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrModelNotReady):
		h.logger.Error("Модель не загружена")
		c.JSON(http.StatusServiceUnavailable, models.ErrorDetail{Detail: "Model not loaded"})
	case errors.Is(err, service.ErrInvalidImage):
		h.logger.Errorf("Некорректное изображение: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorDetail{Detail: "Invalid image file"})
	default:
		h.logger.Errorf("Ошибка детекции: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorDetail{
			Detail: fmt.Sprintf("Detection failed: %v", err),
		})
	}
}

// Root проверка живости сервиса
func (h *DetectHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Detection Service",
		"model":   h.modelName,
		"version": "1.0.0",
	})
}

// CheckHealth проверка готовности: загружена ли модель
func (h *DetectHandler) CheckHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.detection.Ready(),
		ResultsDir:  h.store.ResultsDir(),
	})
}

// GetResult отдает артефакт по точному имени файла
func (h *DetectHandler) GetResult(c *gin.Context) {
	filename := c.Param("filename")

	path, found := h.store.Lookup(filename)
	if !found {
		h.logger.Debugf("Артефакт %s не найден", filename)
		c.JSON(http.StatusNotFound, models.ErrorDetail{Detail: "Result not found"})
		return
	}

	c.File(path)
}
