package model

import "time"

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;unique;index" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// WhatsApp 绑定信息，绑定并验证之后才能通过聊天机器人记账
	WhatsAppNumber   string `gorm:"type:varchar(20);index" json:"whatsapp_number,omitempty"`
	WhatsAppVerified bool   `json:"whatsapp_verified"`
}
