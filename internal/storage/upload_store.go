package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UploadStore промежуточное хранилище загруженных файлов на шлюзе.
// Файлы остаются на диске после успешной обработки, удаляются только
// при провале структурной проверки изображения.
type UploadStore struct {
	dir    string
	logger *logrus.Logger
}

// NewUploadStore создает хранилище загрузок
func NewUploadStore(dir string, logger *logrus.Logger) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &UploadStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Save сохраняет загруженный файл под уникальным именем
// <метка времени>_<uid>_<имя><расширение> и возвращает путь к файлу
func (s *UploadStore) Save(ts time.Time, originalFilename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))

	filename := fmt.Sprintf("%s_%s_%s%s", ts.Format(timestampLayout), shortUID(), SanitizeName(base), ext)
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	s.logger.Infof("Файл сохранен: %s", path)
	return path, nil
}

// Remove удаляет файл из хранилища загрузок
func (s *UploadStore) Remove(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warnf("Не удалось удалить файл %s: %v", path, err)
	}
}

// Dir возвращает каталог хранилища загрузок
func (s *UploadStore) Dir() string {
	return s.dir
}
