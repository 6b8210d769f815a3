// internal/model/batch.go
package model

// BatchEntry is one recipient of a bulk send.
type BatchEntry struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
}

// BatchRequest is the bulk submission body. Delay is in seconds; nil means the configured default.
type BatchRequest struct {
	SMTPConfigID int64        `json:"smtp_config_id"`
	Emails       []BatchEntry `json:"emails"`
	CampaignName string       `json:"campaign_name"`
	Delay        *int         `json:"delay,omitempty"`
}

// SingleSendRequest sends one message. A zero SMTPConfigID selects the user's default profile.
type SingleSendRequest struct {
	SMTPConfigID int64  `json:"smtp_config_id"`
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
}

// BatchResult summarizes one bulk send. Errors is null in JSON when nothing failed.
type BatchResult struct {
	Success bool     `json:"success"`
	Total   int      `json:"total"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
