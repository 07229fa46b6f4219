package model

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username string `json:"username" gorm:"uniqueIndex"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Avatar   string `json:"avatar"`
	Provider string `json:"provider"` // "local", "google", ...
}

// UserProfile is the public slice of a user embedded into outbound
// chat messages and the profile endpoint.
type UserProfile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Provider string `json:"provider"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Provider: u.Provider,
	}
}

func (u *User) SanitizePassword() {
	u.Password = ""
}
