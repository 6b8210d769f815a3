// Package templates renders outreach emails, either from user-authored strings with
// {{field}} placeholders or from the built-in layouts.
package templates

import (
	"regexp"
	"strings"

	"github.com/unclebandit/coldreach-backend/internal/model"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_]+)\s*\}\}`)

// recipient placeholders and the value used when the recipient has none
var recipientFallbacks = map[string]string{
	"name":        "Prospect",
	"company":     "Company",
	"role":        "Professional",
	"industry":    "your industry",
	"pain_points": "",
}

var senderFallbacks = map[string]string{
	"username":     "[Your Name]",
	"position":     "[Your Position]",
	"contact_info": "[Your Contact Information]",
}

// Render substitutes every recognized placeholder in tpl. Unknown placeholders are kept as written.
func Render(tpl string, r model.Recipient, sender model.SenderIdentity) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		field := strings.ToLower(placeholderRe.FindStringSubmatch(m)[1])

		if fallback, ok := recipientFallbacks[field]; ok {
			if v := r.Get(field); v != "" {
				return v
			}
			return fallback
		}
		if fallback, ok := senderFallbacks[field]; ok {
			if v := senderValue(sender, field); v != "" {
				return v
			}
			return fallback
		}
		return m
	})
}

func senderValue(s model.SenderIdentity, field string) string {
	switch field {
	case "username":
		return strings.TrimSpace(s.Username)
	case "position":
		return strings.TrimSpace(s.Position)
	case "contact_info":
		return strings.TrimSpace(s.ContactInfo)
	}
	return ""
}

// SplitSubject separates a leading "Subject: ..." line from the body.
func SplitSubject(text string) (subject, body string) {
	const prefix = "Subject:"
	if !strings.HasPrefix(text, prefix) {
		return "", text
	}
	line, rest, _ := strings.Cut(text, "\n")
	subject = strings.TrimSpace(strings.TrimPrefix(line, prefix))
	return subject, strings.TrimLeft(rest, "\r\n")
}
