package model

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	gorm.Model
	ChatID    uint      `json:"chat_id" gorm:"index"`
	SenderID  uint      `json:"sender_id"`
	Content   string    `json:"content" gorm:"not null"`
	Timestamp time.Time `json:"timestamp"` // server-assigned, UTC

	Sender User `json:"-" gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL"`
}

// TimestampLayout is the wire format for message timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// WireTimestamp formats the server timestamp the way clients expect it.
func (m *Message) WireTimestamp() string {
	return m.Timestamp.UTC().Format(TimestampLayout)
}
