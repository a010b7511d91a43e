package model

import (
	"time"

	"gorm.io/gorm"
)

// DetectionRecord представляет запись истории детекции в базе данных
type DetectionRecord struct {
	ID              string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ImageName       string `gorm:"type:varchar(255);not null" json:"image_name"`
	ImageWidth      int    `gorm:"not null" json:"image_width"`
	ImageHeight     int    `gorm:"not null" json:"image_height"`
	DetectionsCount int    `gorm:"not null;default:0" json:"detections_count"`
	ResultImage     string `gorm:"type:varchar(500)" json:"result_image"`
	ResultJSON      string `gorm:"type:varchar(500)" json:"result_json"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с найденными объектами
	Objects []DetectionObject `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"objects"`
}

// DetectionObject представляет один найденный объект записи истории
type DetectionObject struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordID   string  `gorm:"type:varchar(36);not null;index" json:"record_id"`
	ObjectID   int32   `gorm:"not null" json:"object_id"`
	Class      string  `gorm:"type:varchar(100);not null" json:"class"`
	Confidence float64 `gorm:"not null" json:"confidence"`
	XMin       float64 `gorm:"not null" json:"x_min"`
	YMin       float64 `gorm:"not null" json:"y_min"`
	XMax       float64 `gorm:"not null" json:"x_max"`
	YMax       float64 `gorm:"not null" json:"y_max"`
	CenterX    float64 `gorm:"not null" json:"center_x"`
	CenterY    float64 `gorm:"not null" json:"center_y"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Обратная связь с записью
	Record DetectionRecord `gorm:"foreignKey:RecordID;references:ID" json:"-"`
}

// TableName указывает имя таблицы для DetectionRecord
func (DetectionRecord) TableName() string {
	return "detection_records"
}

// TableName указывает имя таблицы для DetectionObject
func (DetectionObject) TableName() string {
	return "detection_objects"
}
