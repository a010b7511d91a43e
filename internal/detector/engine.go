package detector

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"object-detector-go/pkg/models"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	// ratio коэффициент нормализации пикселей в blob
	ratio = 1.0 / 255.0

	// inputSize размер входа сети (letterbox)
	inputSize = 640

	swapRGB = false
)

// RawDetection один объект из сырого выхода модели после NMS
type RawDetection struct {
	Class      string          // Имя класса
	Confidence float32         // Уверенность модели
	Box        image.Rectangle // Рамка в координатах исходного изображения
}

// Engine владеет единственным экземпляром модели детекции.
// Модель загружается один раз при старте сервиса. Прямой проход сети
// сериализован мьютексом: gocv.Net не является потокобезопасной.
type Engine struct {
	net           gocv.Net
	params        gocv.ImageToBlobParams
	outputNames   []string
	confThreshold float32
	iouThreshold  float32

	mu     sync.Mutex
	loaded bool

	logger *logrus.Logger
}

// NewEngine загружает модель из ONNX файла и настраивает пороги.
// Ошибка загрузки фатальна для сервиса: он не должен запускаться без модели.
func NewEngine(modelPath string, confThreshold, iouThreshold float64, logger *logrus.Logger) (*Engine, error) {
	logger.Infof("Загрузка модели детекции из %s", modelPath)

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
		return nil, fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return nil, fmt.Errorf("failed to set network target: %w", err)
	}

	outputNames := getOutputNames(&net)
	if len(outputNames) == 0 {
		return nil, fmt.Errorf("network has no output layers")
	}

	params := gocv.NewImageToBlobParams(
		ratio,
		image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0),
		swapRGB,
		gocv.MatTypeCV32F,
		gocv.DataLayoutNCHW,
		gocv.PaddingModeLetterbox,
		gocv.NewScalar(114.0, 114.0, 114.0, 0),
	)

	logger.Infof("Модель успешно загружена (conf=%.2f, iou=%.2f)", confThreshold, iouThreshold)

	return &Engine{
		net:           net,
		params:        params,
		outputNames:   outputNames,
		confThreshold: float32(confThreshold),
		iouThreshold:  float32(iouThreshold),
		loaded:        true,
		logger:        logger,
	}, nil
}

// Ready сообщает, загружена ли модель
func (e *Engine) Ready() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Detect выполняет один синхронный прямой проход сети по изображению.
// Возвращает объекты в порядке, в котором их отдает NMS; порядок
// дальше по конвейеру не меняется.
func (e *Engine) Detect(img gocv.Mat) ([]RawDetection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil, fmt.Errorf("detection network not initialized")
	}

	blob := gocv.BlobFromImageWithParams(img, e.params)
	defer blob.Close()

	e.net.SetInput(blob, "")

	probs := e.net.ForwardLayers(e.outputNames)
	defer func() {
		for _, prob := range probs {
			prob.Close()
		}
	}()

	boxes, confidences, classIDs := e.parseOutputs(probs)
	if len(boxes) == 0 {
		return nil, nil
	}

	// Переводим рамки из координат letterbox в координаты исходного изображения
	imageBoxes := e.params.BlobRectsToImageRects(boxes, image.Pt(img.Cols(), img.Rows()))

	indices := gocv.NMSBoxes(imageBoxes, confidences, e.confThreshold, e.iouThreshold)

	detections := make([]RawDetection, 0, len(indices))
	for _, idx := range indices {
		detections = append(detections, RawDetection{
			Class:      className(classIDs[idx]),
			Confidence: confidences[idx],
			Box:        imageBoxes[idx],
		})
	}

	return detections, nil
}

// parseOutputs разбирает сырые выходы YOLO: строка на кандидата,
// [cx, cy, w, h, objectness, оценки классов...]
func (e *Engine) parseOutputs(outs []gocv.Mat) ([]image.Rectangle, []float32, []int) {
	var classIDs []int
	var confidences []float32
	var boxes []image.Rectangle

	for _, out := range outs {
		rows := out.Reshape(1, out.Total()/out.Size()[len(out.Size())-1])

		for i := 0; i < rows.Rows(); i++ {
			cols := rows.Cols()

			objectness := rows.GetFloatAt(i, 4)
			if objectness < e.confThreshold {
				continue
			}

			row := rows.RowRange(i, i+1)
			scores := row.ColRange(5, cols)
			_, maxScore, _, classIDPoint := gocv.MinMaxLoc(scores)
			scores.Close()
			row.Close()

			confidence := objectness * maxScore
			if confidence < e.confThreshold {
				continue
			}

			centerX := rows.GetFloatAt(i, 0)
			centerY := rows.GetFloatAt(i, 1)
			width := rows.GetFloatAt(i, 2)
			height := rows.GetFloatAt(i, 3)

			left := centerX - width/2
			top := centerY - height/2
			right := centerX + width/2
			bottom := centerY + height/2

			classIDs = append(classIDs, classIDPoint.X)
			confidences = append(confidences, confidence)
			boxes = append(boxes, image.Rect(int(left), int(top), int(right), int(bottom)))
		}

		rows.Close()
	}

	return boxes, confidences, classIDs
}

// Annotate рисует рамки и подписи на копии изображения и кодирует ее в JPEG.
// Геометрия изображения не меняется.
func (e *Engine) Annotate(img gocv.Mat, detections []models.Detection) ([]byte, error) {
	annotated := img.Clone()
	defer annotated.Close()

	boxColor := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	for _, det := range detections {
		rect := image.Rect(
			int(det.BoundingBox.XMin),
			int(det.BoundingBox.YMin),
			int(det.BoundingBox.XMax),
			int(det.BoundingBox.YMax),
		)

		if err := gocv.Rectangle(&annotated, rect, boxColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", det.Class, det.Confidence)
		pt := image.Pt(int(det.BoundingBox.XMin), int(det.BoundingBox.YMin)-5)
		if err := gocv.PutText(&annotated, label, pt, gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
			return nil, fmt.Errorf("failed to draw label: %w", err)
		}
	}

	// Mat хранится в RGB, JPEG кодируется из BGR
	if err := gocv.CvtColor(annotated, &annotated, gocv.ColorRGBToBGR); err != nil {
		return nil, fmt.Errorf("failed to convert color space: %w", err)
	}

	buf, err := gocv.IMEncode(".jpg", annotated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())

	return encoded, nil
}

// Close освобождает ресурсы модели
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		e.net.Close()
		e.loaded = false
	}
}

// getOutputNames возвращает имена несоединенных выходных слоев сети
func getOutputNames(net *gocv.Net) []string {
	var outputLayers []string
	for _, i := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(i)
		layerName := layer.GetName()
		if layerName != "_input" {
			outputLayers = append(outputLayers, layerName)
		}
	}

	return outputLayers
}
