// Package csvimport turns uploaded CSV text into validated recipients and rendered emails.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/templates"
)

// DefaultRequired is the column set used by the built-in templates.
var DefaultRequired = []string{"name", "company", "role", "email"}

// RenderFunc produces the email text for one validated recipient.
type RenderFunc func(r model.Recipient) (string, error)

// Entry is one recipient that validated and rendered.
type Entry struct {
	Recipient     model.Recipient `json:"recipient"`
	RenderedEmail string          `json:"rendered_email"`
	Subject       string          `json:"subject,omitempty"`
}

// Result is the outcome of one upload. Success is false when the header is unusable or
// when rows were seen but none produced an email.
type Result struct {
	Success              bool     `json:"success"`
	Emails               []Entry  `json:"emails"`
	Errors               []string `json:"errors"`
	TotalRecipients      int      `json:"total_recipients"`
	SuccessfulRecipients int      `json:"successful_recipients"`
}

// Parse validates every row of text against required and renders the ones that pass.
// Row numbers in errors count the header, so the first data row is row 2.
func Parse(text string, required []string, render RenderFunc) *Result {
	res := &Result{
		Success: true,
		Emails:  []Entry{},
		Errors:  []string{},
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return fail(res, "Error processing CSV: missing header row")
	}
	if err != nil {
		return fail(res, fmt.Sprintf("Error processing CSV: %v", err))
	}

	columns := make([]string, len(header))
	present := map[string]bool{}
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
		present[columns[i]] = true
	}

	var missing []string
	for _, f := range required {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fail(res, "Missing required columns: "+strings.Join(missing, ", "))
	}

	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(res, fmt.Sprintf("Error processing CSV: %v", err))
		}

		recipient, blank := toRecipient(columns, record)
		if blank {
			continue
		}
		res.TotalRecipients++

		if m := recipient.Missing(required); len(m) > 0 {
			problems := make([]string, len(m))
			for i, f := range m {
				problems[i] = "Missing " + f
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", rowNum, strings.Join(problems, ", ")))
			continue
		}

		email, err := render(recipient)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Failed to generate email: %v", rowNum, err))
			continue
		}

		entry := Entry{Recipient: recipient, RenderedEmail: email}
		entry.Subject, _ = templates.SplitSubject(email)
		res.Emails = append(res.Emails, entry)
		res.SuccessfulRecipients++
	}

	// a header with no data rows stays successful
	if res.TotalRecipients > 0 && res.SuccessfulRecipients == 0 {
		res.Success = false
	}
	return res
}

func toRecipient(columns, record []string) (model.Recipient, bool) {
	r := make(model.Recipient, len(columns))
	blank := true
	for i, col := range columns {
		v := ""
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		if v != "" {
			blank = false
		}
		if col == "" {
			continue
		}
		r[col] = v
	}
	return r, blank
}

func fail(res *Result, msg string) *Result {
	res.Success = false
	res.Errors = append(res.Errors, msg)
	return res
}
