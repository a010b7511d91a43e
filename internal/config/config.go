package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Gateway struct {
		Port              int
		DetectorBaseURL   string
		TimeoutSeconds    int
		MaxUploadBytes    int64
		AllowedExtensions []string
		UploadDir         string
	}
	Detector struct {
		Port          int
		ModelPath     string
		ConfThreshold float64
		IouThreshold  float64
		StaticDir     string
	}
	Database struct {
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env подхватывается если присутствует.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// Конфигурация шлюза загрузки
	cfg.Gateway.Port = getEnvInt("GATEWAY_PORT", 8000)
	cfg.Gateway.DetectorBaseURL = getEnv("DETECTOR_BASE_URL", "http://localhost:8001")
	cfg.Gateway.TimeoutSeconds = getEnvInt("DETECTOR_TIMEOUT_SECONDS", 30)
	cfg.Gateway.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", 16<<20)) // 16 MiB
	cfg.Gateway.AllowedExtensions = getEnvList("ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"})
	cfg.Gateway.UploadDir = getEnv("UPLOAD_DIR", "static/uploads")

	// Конфигурация сервиса детекции
	cfg.Detector.Port = getEnvInt("DETECTOR_PORT", 8001)
	cfg.Detector.ModelPath = getEnv("MODEL_PATH", "models/yolov5n.onnx")
	cfg.Detector.ConfThreshold = getEnvFloat("CONF_THRESHOLD", 0.25)
	cfg.Detector.IouThreshold = getEnvFloat("IOU_THRESHOLD", 0.45)
	cfg.Detector.StaticDir = getEnv("STATIC_DIR", "static")

	// Конфигурация базы данных
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "object_detector")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres123")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvList получает список значений через запятую или возвращает значение по умолчанию
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, strings.ToLower(trimmed))
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
