package models

import "math"

// BoundingBox представляет рамку найденного объекта в пикселях исходного изображения
type BoundingBox struct {
	XMin float64 `json:"x_min"` // Левая граница рамки
	YMin float64 `json:"y_min"` // Верхняя граница рамки
	XMax float64 `json:"x_max"` // Правая граница рамки
	YMax float64 `json:"y_max"` // Нижняя граница рамки
}

// Center представляет центр рамки (середина между углами)
type Center struct {
	X float64 `json:"x"` // Координата X центра
	Y float64 `json:"y"` // Координата Y центра
}

// Detection представляет один найденный объект на изображении
type Detection struct {
	ObjectID    int         `json:"object_id"`    // Порядковый номер объекта (с единицы)
	Class       string      `json:"class"`        // Название класса объекта
	Confidence  float64     `json:"confidence"`   // Уверенность модели (округление до 4 знаков)
	BoundingBox BoundingBox `json:"bounding_box"` // Рамка объекта (округление до 2 знаков)
	Center      Center      `json:"center"`       // Центр рамки (середина рамки)
}

// ImageSize содержит размеры исходного изображения
type ImageSize struct {
	Width  int `json:"width"`  // Ширина в пикселях
	Height int `json:"height"` // Высота в пикселях
}

// DetectionResult представляет полный результат детекции объектов
type DetectionResult struct {
	Success         bool        `json:"success"`          // Флаг успешного выполнения
	ImageName       string      `json:"image_name"`       // Оригинальное имя файла
	ImageSize       ImageSize   `json:"image_size"`       // Размеры изображения
	DetectionsCount int         `json:"detections_count"` // Количество найденных объектов
	Detections      []Detection `json:"detections"`       // Найденные объекты в порядке вывода модели
	ResultImage     string      `json:"result_image"`     // URL путь к изображению с рамками
	ResultJSON      string      `json:"result_json"`      // URL путь к JSON результату
	Timestamp       string      `json:"timestamp"`        // Время обработки в формате ISO-8601
}

// ErrorDetail представляет тело ошибки сервиса детекции
type ErrorDetail struct {
	Detail string `json:"detail"` // Описание ошибки
}

// UploadError представляет тело ошибки шлюза загрузки
type UploadError struct {
	Success bool   `json:"success"` // Всегда false
	Error   string `json:"error"`   // Описание ошибки
}

// HealthResponse представляет ответ проверки готовности сервиса детекции
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружена ли модель
	ResultsDir  string `json:"results_dir,omitempty"` // Каталог с артефактами
}

// NewDetection создает Detection с округлением и производным центром.
// Центр всегда считается как середина уже округленной рамки.
func NewDetection(objectID int, class string, confidence, xMin, yMin, xMax, yMax float64) Detection {
	box := BoundingBox{
		XMin: Round2(xMin),
		YMin: Round2(yMin),
		XMax: Round2(xMax),
		YMax: Round2(yMax),
	}

	return Detection{
		ObjectID:    objectID,
		Class:       class,
		Confidence:  Round4(confidence),
		BoundingBox: box,
		Center: Center{
			X: Round2((box.XMin + box.XMax) / 2),
			Y: Round2((box.YMin + box.YMax) / 2),
		},
	}
}

// Round2 округляет до 2 знаков после запятой
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 округляет до 4 знаков после запятой
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
