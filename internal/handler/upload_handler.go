package handler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	// Структурная проверка всех разрешенных форматов изображений
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"object-detector-go/internal/client"
	"object-detector-go/internal/storage"
	"object-detector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// uploadFieldName фиксированное имя поля загрузки
const uploadFieldName = "image"

// UploadHandler обрабатывает загрузку изображений на шлюзе:
// валидация, промежуточное сохранение, пересылка в сервис детекции
type UploadHandler struct {
	detectorClient *client.DetectorAPIClient
	uploads        *storage.UploadStore
	maxUploadBytes int64
	allowedExts    map[string]bool
	logger         *logrus.Logger
}

// NewUploadHandler создает новый обработчик загрузки
func NewUploadHandler(detectorClient *client.DetectorAPIClient, uploads *storage.UploadStore, maxUploadBytes int64, allowedExtensions []string, logger *logrus.Logger) *UploadHandler {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &UploadHandler{
		detectorClient: detectorClient,
		uploads:        uploads,
		maxUploadBytes: maxUploadBytes,
		allowedExts:    allowed,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты шлюза
func (h *UploadHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/upload", h.Upload)
	router.GET("/health", h.CheckHealth)
}

// Upload обрабатывает загрузку изображения и пересылает его в сервис детекции
func (h *UploadHandler) Upload(c *gin.Context) {
	h.logger.Info("Получен запрос на загрузку изображения")

	// Получаем файл из формы
	file, header, err := c.Request.FormFile(uploadFieldName)
	if err != nil {
		h.logger.Errorf("Файл изображения отсутствует в запросе: %v", err)
		h.validationError(c, "No image file provided")
		return
	}
	defer file.Close()

	// Проверяем имя файла
	if header.Filename == "" {
		h.logger.Error("Пустое имя файла")
		h.validationError(c, "No file selected")
		return
	}

	// Проверяем расширение по списку разрешенных
	if !h.allowedExtension(header.Filename) {
		h.logger.Errorf("Недопустимый тип файла: %s", header.Filename)
		h.validationError(c, "Invalid file type. Allowed: png, jpg, jpeg, gif, bmp, webp")
		return
	}

	// Проверяем размер файла
	if header.Size > h.maxUploadBytes {
		h.logger.Errorf("Файл слишком большой: %d байт", header.Size)
		h.validationError(c, fmt.Sprintf("File is too large. Maximum size is %d bytes", h.maxUploadBytes))
		return
	}

	// Читаем содержимое файла
	imageData, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.logger.Errorf("Ошибка чтения файла: %v", err)
		c.JSON(http.StatusInternalServerError, models.UploadError{Error: "Failed to read uploaded file"})
		return
	}

	if int64(len(imageData)) > h.maxUploadBytes {
		h.logger.Error("Файл превышает максимальный размер")
		h.validationError(c, fmt.Sprintf("File is too large. Maximum size is %d bytes", h.maxUploadBytes))
		return
	}

	// Сохраняем файл в промежуточное хранилище
	stagedPath, err := h.uploads.Save(time.Now(), header.Filename, imageData)
	if err != nil {
		h.logger.Errorf("Ошибка сохранения файла: %v", err)
		c.JSON(http.StatusInternalServerError, models.UploadError{Error: "Failed to save uploaded file"})
		return
	}

	// Структурная проверка: файл должен декодироваться как изображение.
	// При провале промежуточный файл удаляется.
	if _, format, err := image.Decode(bytes.NewReader(imageData)); err != nil {
		h.uploads.Remove(stagedPath)
		h.logger.Errorf("Файл не является корректным изображением: %v", err)
		h.validationError(c, "Invalid image file")
		return
	} else {
		h.logger.Infof("Изображение прошло проверку: формат %s", format)
	}

	// Пересылаем в сервис детекции. Промежуточный файл после вызова
	// остается на диске, за его жизненный цикл отвечает хранилище.
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.detectorClient.Detect(header.Filename, contentType, imageData)
	if err != nil {
		h.respondUpstreamError(c, err)
		return
	}

	// Дополняем отсутствующие поля, не перезаписывая присланные
	fillResponseDefaults(result, header.Filename)

	h.logger.Infof("Детекция успешна: найдено %v объектов", result["detections_count"])
	c.JSON(http.StatusOK, result)
}

// CheckHealth проверяет состояние шлюза и сервиса детекции
func (h *UploadHandler) CheckHealth(c *gin.Context) {
	h.logger.Debug("Получен запрос проверки здоровья")

	detectorStatus := gin.H{"status": "unreachable"}
	if health, err := h.detectorClient.CheckHealth(); err != nil {
		h.logger.Errorf("Сервис детекции недоступен: %v", err)
		detectorStatus["error"] = err.Error()
	} else {
		detectorStatus = gin.H{
			"status":       health.Status,
			"model_loaded": health.ModelLoaded,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "Ingestion Gateway",
		"timestamp": time.Now().Format(time.RFC3339),
		"detector":  detectorStatus,
	})
}

// allowedExtension проверяет расширение файла по списку разрешенных
func (h *UploadHandler) allowedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	return h.allowedExts[ext]
}

// validationError отвечает ошибкой валидации без пересылки запроса
func (h *UploadHandler) validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.UploadError{
		Success: false,
		Error:   message,
	})
}

// respondUpstreamError переводит ошибку вызова сервиса детекции
// в клиентский ответ шлюза
func (h *UploadHandler) respondUpstreamError(c *gin.Context, err error) {
	var upstreamErr *client.UpstreamError

	switch {
	case errors.Is(err, client.ErrUpstreamTimeout):
		h.logger.Errorf("Таймаут сервиса детекции: %v", err)
		c.JSON(http.StatusGatewayTimeout, models.UploadError{
			Error: "Detection service request timeout",
		})
	case errors.Is(err, client.ErrUpstreamUnavailable):
		h.logger.Errorf("Сервис детекции недоступен: %v", err)
		c.JSON(http.StatusServiceUnavailable, models.UploadError{
			Error: "Detection service unreachable. Please ensure it's running.",
		})
	case errors.As(err, &upstreamErr):
		// Не-2xx от сервиса детекции проксируется с тем же статусом
		h.logger.Errorf("Ошибка сервиса детекции: %v", err)
		c.JSON(upstreamErr.StatusCode, models.UploadError{
			Error: fmt.Sprintf("Detection service error: %s", upstreamErr.Detail),
		})
	default:
		h.logger.Errorf("Ошибка пересылки в сервис детекции: %v", err)
		c.JSON(http.StatusInternalServerError, models.UploadError{
			Error: fmt.Sprintf("Internal server error: %v", err),
		})
	}
}

// fillResponseDefaults дополняет ответ сервиса детекции обязательными
// полями, если он их не прислал
func fillResponseDefaults(result map[string]interface{}, filename string) {
	if _, ok := result["success"]; !ok {
		result["success"] = true
	}
	if _, ok := result["image_name"]; !ok {
		result["image_name"] = filename
	}
	if _, ok := result["detections_count"]; !ok {
		if detections, ok := result["detections"].([]interface{}); ok {
			result["detections_count"] = len(detections)
		} else {
			result["detections_count"] = 0
		}
	}
}
