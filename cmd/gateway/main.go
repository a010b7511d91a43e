package main

import (
	"fmt"
	"net/http"
	"time"

	"object-detector-go/internal/client"
	"object-detector-go/internal/config"
	"object-detector-go/internal/handler"
	"object-detector-go/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Получаем конфигурацию из переменных окружения
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.Info("Запуск Ingestion Gateway")
	logger.Infof("Сервис детекции: %s", cfg.Gateway.DetectorBaseURL)

	// Создаем промежуточное хранилище загрузок
	uploads, err := storage.NewUploadStore(cfg.Gateway.UploadDir, logger)
	if err != nil {
		logger.Fatalf("Ошибка создания хранилища загрузок: %v", err)
	}

	// Инициализируем клиент сервиса детекции с ограниченным ожиданием
	detectorClient := client.NewDetectorAPIClient(
		cfg.Gateway.DetectorBaseURL,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
		logger,
	)

	// Инициализируем обработчики
	uploadHandler := handler.NewUploadHandler(
		detectorClient,
		uploads,
		cfg.Gateway.MaxUploadBytes,
		cfg.Gateway.AllowedExtensions,
		logger,
	)

	// Настраиваем Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Обслуживание промежуточных загрузок
	router.Static("/static/uploads", uploads.Dir())

	// Регистрируем маршруты
	uploadHandler.RegisterRoutes(router)

	// Базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Object Detection Gateway",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	// Запускаем сервер
	serverAddr := fmt.Sprintf(":%d", cfg.Gateway.Port)
	logger.Infof("Шлюз запущен на порту %d", cfg.Gateway.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
