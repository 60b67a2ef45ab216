package models

import "time"

// Token is the persisted row of a name -> secret mapping.
type Token struct {
	Name      string    `gorm:"primaryKey;column:name"`
	Secret    string    `gorm:"column:secret;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Token) TableName() string {
	return "tokens"
}

// AdminCredential is the admin account as stored by the credential collaborator.
type AdminCredential struct {
	Username string `json:"username"`
	// PasswordHash is a bcrypt hash, or a legacy hex sha256 digest.
	PasswordHash string `json:"password"`
}

// Session is an authenticated admin session.
type Session struct {
	ID        string    `json:"session"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
