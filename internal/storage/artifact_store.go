package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// timestampLayout формат времени в именах файлов (секундная точность)
	timestampLayout = "20060102_150405"

	imagesSubdir = "image"
	jsonSubdir   = "json"
)

// unsafeChars символы, недопустимые в именах файлов
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// ArtifactStore хранилище артефактов детекции.
// Файлы пишутся один раз, никогда не изменяются и не удаляются автоматически.
type ArtifactStore struct {
	resultsDir string
	imagesDir  string
	jsonDir    string
	logger     *logrus.Logger
}

// NewArtifactStore создает хранилище артефактов в каталоге static/results
func NewArtifactStore(staticDir string, logger *logrus.Logger) (*ArtifactStore, error) {
	resultsDir := filepath.Join(staticDir, "results")
	imagesDir := filepath.Join(resultsDir, imagesSubdir)
	jsonDir := filepath.Join(resultsDir, jsonSubdir)

	for _, dir := range []string{imagesDir, jsonDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory %s: %w", dir, err)
		}
	}

	return &ArtifactStore{
		resultsDir: resultsDir,
		imagesDir:  imagesDir,
		jsonDir:    jsonDir,
		logger:     logger,
	}, nil
}

// ArtifactBaseName строит базовое имя пары артефактов:
// result_<метка времени>_<uid>_<имя без расширения>.
// Короткий uid исключает коллизии при одинаковых именах в одну секунду.
func ArtifactBaseName(ts time.Time, originalFilename string) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	return fmt.Sprintf("result_%s_%s_%s", ts.Format(timestampLayout), shortUID(), SanitizeName(base))
}

// ImageURL возвращает URL путь изображения артефакта
func (s *ArtifactStore) ImageURL(baseName string) string {
	return "/static/results/" + imagesSubdir + "/" + baseName + ".jpg"
}

// JSONURL возвращает URL путь JSON артефакта
func (s *ArtifactStore) JSONURL(baseName string) string {
	return "/static/results/" + jsonSubdir + "/" + baseName + ".json"
}

// SaveImage сохраняет изображение с рамками
func (s *ArtifactStore) SaveImage(baseName string, data []byte) error {
	path := filepath.Join(s.imagesDir, baseName+".jpg")

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image artifact: %w", err)
	}

	s.logger.Infof("Изображение результата сохранено: %s", path)
	return nil
}

// SaveJSON сохраняет JSON результат с отступами
func (s *ArtifactStore) SaveJSON(baseName string, v interface{}) error {
	path := filepath.Join(s.jsonDir, baseName+".json")

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write json artifact: %w", err)
	}

	s.logger.Infof("JSON результат сохранен: %s", path)
	return nil
}

// RemoveImage удаляет изображение артефакта.
// Используется только при откате незавершенной пары артефактов.
func (s *ArtifactStore) RemoveImage(baseName string) {
	path := filepath.Join(s.imagesDir, baseName+".jpg")
	if err := os.Remove(path); err != nil {
		s.logger.Warnf("Не удалось удалить артефакт %s: %v", path, err)
	}
}

// Lookup ищет артефакт по имени файла в подкаталогах результатов
func (s *ArtifactStore) Lookup(filename string) (string, bool) {
	// Защита от выхода за пределы каталога
	filename = filepath.Base(filename)

	for _, dir := range []string{s.imagesDir, s.jsonDir} {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

// ResultsDir возвращает корневой каталог артефактов
func (s *ArtifactStore) ResultsDir() string {
	return s.resultsDir
}

// SanitizeName приводит имя файла к безопасному виду
func SanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return name
}

// shortUID возвращает короткий уникальный суффикс для имен файлов
func shortUID() string {
	return uuid.New().String()[:8]
}
