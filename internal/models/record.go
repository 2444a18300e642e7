package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// ObjectRecord is the durable form of a canvas object. The engine
// mirrors objects in memory and forwards every mutation here through
// the persistence collaborator; a failed write is logged, never rolled
// back in memory.
type ObjectRecord struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	CanvasID  string    `json:"canvas_id" gorm:"type:varchar(64);not null;index"`
	Type      string    `json:"type" gorm:"type:varchar(32);not null"`
	Data      []byte    `json:"data" gorm:"type:jsonb;not null"` // full CanvasObject JSON
	CreatedBy string    `json:"created_by" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AuditRecord is one forwarded activity event.
// Learning: KSUIDs are time-ordered, so the audit table stays in
// roughly chronological order without an extra sort column.
type AuditRecord struct {
	ID        string    `json:"id" gorm:"type:char(27);primaryKey"`
	EventID   string    `json:"event_id" gorm:"type:varchar(64);not null"`
	CanvasID  string    `json:"canvas_id" gorm:"type:varchar(64);not null;index"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);index"`
	ClientID  string    `json:"client_id" gorm:"type:varchar(64)"`
	Type      string    `json:"type" gorm:"type:varchar(32);not null"`
	Payload   []byte    `json:"payload,omitempty" gorm:"type:jsonb"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (a *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = ksuid.New().String()
	}
	return nil
}
