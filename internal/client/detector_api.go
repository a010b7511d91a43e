package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"object-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUpstreamTimeout сервис детекции не ответил за отведенное время
	ErrUpstreamTimeout = errors.New("detection service request timeout")

	// ErrUpstreamUnavailable сервис детекции недоступен (нет соединения)
	ErrUpstreamUnavailable = errors.New("detection service unreachable")
)

// UpstreamError ошибка, возвращенная сервисом детекции с не-2xx статусом
type UpstreamError struct {
	StatusCode int    // HTTP статус ответа
	Detail     string // Сообщение из тела ответа
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("detection service error: статус %d, %s", e.StatusCode, e.Detail)
}

// DetectorAPIClient клиент для взаимодействия с сервисом детекции
type DetectorAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDetectorAPIClient создает новый клиент сервиса детекции
func NewDetectorAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *DetectorAPIClient {
	return &DetectorAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Detect отправляет изображение на детекцию объектов.
// Тело успешного ответа возвращается как есть (map), чтобы шлюз мог
// дополнить отсутствующие поля, не перезаписывая присланные.
func (c *DetectorAPIClient) Detect(filename, contentType string, imageData []byte) (map[string]interface{}, error) {
	c.logger.Infof("Отправка изображения %s в сервис детекции", filename)

	// Создаем multipart form-data. Тип содержимого файла пробрасывается
	// как есть: сервис детекции принимает только image/*
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	partHeader.Set("Content-Type", contentType)

	fileWriter, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания form field для файла: %w", err)
	}

	if _, err := fileWriter.Write(imageData); err != nil {
		return nil, fmt.Errorf("ошибка записи данных изображения: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия multipart writer: %w", err)
	}

	// Создаем HTTP запрос
	url := fmt.Sprintf("%s/detect", c.baseURL)
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Отправляем запрос. Повторов нет: таймаут и недоступность
	// терминальны для текущего запроса.
	c.logger.Debugf("Отправка POST запроса на %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Detail:     upstreamDetail(respBody),
		}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	c.logger.Info("Успешно получен ответ от сервиса детекции")
	return result, nil
}

// CheckHealth проверяет готовность сервиса детекции
func (c *DetectorAPIClient) CheckHealth() (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса детекции")

	url := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Detail:     upstreamDetail(respBody),
		}
	}

	var health models.HealthResponse
	if err := json.Unmarshal(respBody, &health); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}

	return &health, nil
}

// classifyTransportError различает таймаут и недоступность сервиса
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	// Прочие локальные ошибки транспорта не считаются недоступностью
	return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
}

// quoteEscaper экранирует кавычки в имени файла для Content-Disposition
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// upstreamDetail извлекает сообщение из тела ошибки {"detail": "..."}
func upstreamDetail(body []byte) string {
	var detail models.ErrorDetail
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return string(body)
}
