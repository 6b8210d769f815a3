// internal/model/smtp_profile.go
package model

import "time"

// SMTPProfile is a user's saved mail server credentials and sender identity.
type SMTPProfile struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Name      string     `db:"name" json:"name"`
	Host      string     `db:"host" json:"host"`
	Port      int        `db:"port" json:"port"`
	Username  string     `db:"username" json:"username"`
	Password  string     `db:"password" json:"-"`
	UseTLS    bool       `db:"use_tls" json:"use_tls"`
	FromEmail string     `db:"from_email" json:"from_email"`
	FromName  string     `db:"from_name" json:"from_name"`
	ReplyTo   string     `db:"reply_to" json:"reply_to,omitempty"`
	IsDefault bool       `db:"is_default" json:"is_default"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
