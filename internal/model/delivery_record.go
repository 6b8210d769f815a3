// internal/model/delivery_record.go
package model

import "time"

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// DeliveryRecord is one attempted send. Status moves pending -> sent or pending -> failed once;
// Opened and Clicked only ever flip from false to true.
type DeliveryRecord struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	SMTPConfigID int64      `db:"smtp_config_id" json:"smtp_config_id"`
	Recipient    string     `db:"recipient" json:"recipient"`
	Subject      string     `db:"subject" json:"subject"`
	Content      string     `db:"content" json:"content"`
	CampaignName string     `db:"campaign_name" json:"campaign_name,omitempty"`
	Status       string     `db:"status" json:"status"` // pending, sent, failed
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Opened       bool       `db:"opened" json:"opened"`
	OpenedAt     *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	Clicked      bool       `db:"clicked" json:"clicked"`
	ClickedAt    *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// MarkSent records a successful attempt.
func (d *DeliveryRecord) MarkSent(at time.Time) {
	d.Status = StatusSent
	d.ErrorMessage = ""
	d.SentAt = &at
}

// MarkFailed records a failed attempt together with its reason.
func (d *DeliveryRecord) MarkFailed(at time.Time, reason string) {
	d.Status = StatusFailed
	d.ErrorMessage = reason
	d.SentAt = &at
}

// CampaignStats counts the records of one campaign.
type CampaignStats struct {
	CampaignName string `db:"campaign_name" json:"campaign_name"`
	Total        int    `db:"total" json:"total"`
	Pending      int    `db:"pending" json:"pending"`
	Sent         int    `db:"sent" json:"sent"`
	Failed       int    `db:"failed" json:"failed"`
	Opened       int    `db:"opened" json:"opened"`
	Clicked      int    `db:"clicked" json:"clicked"`
}
