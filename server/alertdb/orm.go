package alertdb

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Alert is one promoted detection, as stored.
type Alert struct {
	BaseModel
	Time       dbh.IntTime `json:"time"`
	Label      string      `json:"label"`
	Confidence float32     `json:"confidence"`
	FrameName  string      `json:"frameName"` // Storage name of the uploaded frame, empty when storage was disabled
	Thumb      []byte      `json:"thumb"`     // JPEG thumbnail, may be nil
}
