package handler

import (
	"net/http"
	"strconv"

	"object-detector-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HistoryHandler обрабатывает HTTP запросы к истории детекций
type HistoryHandler struct {
	history *service.HistoryService
	logger  *logrus.Logger
}

// NewHistoryHandler создает новый обработчик истории
func NewHistoryHandler(history *service.HistoryService, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует маршруты API истории
func (h *HistoryHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/detections", h.ListDetections)
		api.GET("/detections/:id", h.GetDetection)
		api.DELETE("/detections/:id", h.DeleteDetection)
	}
}

// ListDetections возвращает список записей истории с пагинацией
func (h *HistoryHandler) ListDetections(c *gin.Context) {
	h.logger.Info("Получен запрос на список записей истории")

	// Получаем параметры пагинации
	pageStr := c.DefaultQuery("page", "1")
	sizeStr := c.DefaultQuery("size", "10")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	response, err := h.history.List(page, size)
	if err != nil {
		h.logger.Errorf("Ошибка получения списка записей: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list detection records"})
		return
	}

	h.logger.Infof("Возвращено %d записей из %d", len(response.Records), response.Total)
	c.JSON(http.StatusOK, response)
}

// GetDetection возвращает запись истории по ID
func (h *HistoryHandler) GetDetection(c *gin.Context) {
	recordID := c.Param("id")
	h.logger.Infof("Получен запрос на запись истории с ID: %s", recordID)

	record, err := h.history.GetByID(recordID)
	if err != nil {
		h.logger.Errorf("Ошибка получения записи: %v", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Detection record not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteDetection удаляет запись истории по ID
func (h *HistoryHandler) DeleteDetection(c *gin.Context) {
	recordID := c.Param("id")
	h.logger.Infof("Получен запрос на удаление записи истории с ID: %s", recordID)

	if err := h.history.Delete(recordID); err != nil {
		h.logger.Errorf("Ошибка удаления записи: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete detection record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Detection record deleted"})
}
