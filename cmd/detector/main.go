package main

import (
	"fmt"
	"net/http"

	"object-detector-go/internal/config"
	"object-detector-go/internal/database"
	"object-detector-go/internal/detector"
	"object-detector-go/internal/handler"
	"object-detector-go/internal/repository"
	"object-detector-go/internal/service"
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

	logger.Info("Запуск Detection Service")

	// Инициализируем базу данных истории
	logger.Info("Подключение к базе данных...")
	if err := database.Connect(cfg); err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	// Выполняем миграции
	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	// Проверяем здоровье базы данных
	if err := database.HealthCheck(); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")

	// Создаем хранилище артефактов
	store, err := storage.NewArtifactStore(cfg.Detector.StaticDir, logger)
	if err != nil {
		logger.Fatalf("Ошибка создания хранилища артефактов: %v", err)
	}

	// Загружаем модель один раз при старте.
	// Без модели сервис не запускается.
	engine, err := detector.NewEngine(
		cfg.Detector.ModelPath,
		cfg.Detector.ConfThreshold,
		cfg.Detector.IouThreshold,
		logger,
	)
	if err != nil {
		logger.Fatalf("Ошибка загрузки модели: %v", err)
	}
	defer engine.Close()

	// Инициализируем репозитории и сервисы
	detectionRepo := repository.NewDetectionRepository(database.DB)
	historyService := service.NewHistoryService(detectionRepo, logger)
	detectionService := service.NewDetectionService(engine, store, historyService, logger)

	// Инициализируем обработчики
	detectHandler := handler.NewDetectHandler(detectionService, store, cfg.Detector.ModelPath, logger)
	historyHandler := handler.NewHistoryHandler(historyService, logger)

	// Настраиваем Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Обслуживание артефактов по URL путям из ответов
	router.Static("/static/results", store.ResultsDir())

	// Регистрируем маршруты
	detectHandler.RegisterRoutes(router)
	historyHandler.RegisterRoutes(router)

	// Запускаем сервер
	serverAddr := fmt.Sprintf(":%d", cfg.Detector.Port)
	logger.Infof("Сервис детекции запущен на порту %d", cfg.Detector.Port)

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
