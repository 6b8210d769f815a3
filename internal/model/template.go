// internal/model/template.go
package model

import (
	"strings"
	"time"
)

// EmailTemplate is a user-authored template with {{field}} placeholders.
type EmailTemplate struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Name           string    `db:"name" json:"name"`
	Subject        string    `db:"subject" json:"subject"`
	Body           string    `db:"body" json:"body"`
	RequiredFields string    `db:"required_fields" json:"required_fields"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Required splits RequiredFields into normalized names, always including "email".
func (t *EmailTemplate) Required() []string {
	fields := []string{}
	seen := map[string]bool{}
	for _, f := range strings.Split(t.RequiredFields, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	if !seen["email"] {
		fields = append(fields, "email")
	}
	return fields
}
