package model

import "gorm.io/gorm"

// Chat is a conversation between exactly two distinct users. The pair is
// stored normalized (FirstUserID < SecondUserID), so the composite unique
// index enforces one chat per unordered pair.
type Chat struct {
	gorm.Model
	FirstUserID  uint `json:"first_user_id" gorm:"uniqueIndex:idx_chat_pair;check:chk_chat_distinct,first_user_id <> second_user_id"`
	SecondUserID uint `json:"second_user_id" gorm:"uniqueIndex:idx_chat_pair"`

	FirstUser  User      `json:"-" gorm:"foreignKey:FirstUserID;constraint:OnDelete:SET NULL"`
	SecondUser User      `json:"-" gorm:"foreignKey:SecondUserID;constraint:OnDelete:SET NULL"`
	Messages   []Message `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// HasParticipant reports whether the user is one of the two sides.
func (c *Chat) HasParticipant(userID uint) bool {
	return c.FirstUserID == userID || c.SecondUserID == userID
}

// NormalizePair orders two user ids ascending, the canonical storage order.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
