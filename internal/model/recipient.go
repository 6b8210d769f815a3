// internal/model/recipient.go
package model

import "strings"

// Recipient maps lowercase field names to trimmed values. It lives only for the
// duration of one render.
type Recipient map[string]string

// Get returns the trimmed value of field, or "" when absent.
func (r Recipient) Get(field string) string {
	return strings.TrimSpace(r[strings.ToLower(field)])
}

// Missing lists the required fields that are absent or empty, in the order given.
func (r Recipient) Missing(required []string) []string {
	var missing []string
	for _, f := range required {
		if r.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// SenderIdentity fills the sender placeholders of a template.
type SenderIdentity struct {
	Username    string `json:"username"`
	Position    string `json:"position"`
	ContactInfo string `json:"contact_info"`
}
