package entities

import (
	"time"

	"github.com/google/uuid"
)

type (
	Invocation struct {
		ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
		Instance  int       `gorm:"not null" json:"instance"`
		Kind      string    `gorm:"size:16;not null;index" json:"kind"`
		Command   string    `gorm:"size:64;not null;index" json:"command"`
		UserID    int64     `gorm:"not null;index" json:"user_id"`
		ChatID    int64     `gorm:"not null" json:"chat_id"`
		Args      string    `gorm:"type:text" json:"args"`
		Outcome   string    `gorm:"size:32;not null" json:"outcome"`
		Error     *string   `gorm:"type:text" json:"error"`
		ElapsedMs int64     `gorm:"not null" json:"elapsed_ms"`
		CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	}
)
