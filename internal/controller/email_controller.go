// internal/controller/email_controller.go
package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coldreach-backend/internal/httputil"
	"github.com/unclebandit/coldreach-backend/internal/middleware"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/service"
)

type EmailController struct {
	Deliveries    *service.DeliveryService
	Templates     *service.TemplateService
	PublicBaseURL string
}

// ProcessBulkEmails sends a whole batch and answers once every recipient was attempted.
func (c *EmailController) ProcessBulkEmails(w http.ResponseWriter, r *http.Request) {
	var body model.BatchRequest
	if !httputil.Decode(w, r, &body) {
		return
	}

	result, err := c.Deliveries.SendBatch(r.Context(), middleware.UserID(r.Context()), baseURL(c.PublicBaseURL, r), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, result)
}

func (c *EmailController) SendEmail(w http.ResponseWriter, r *http.Request) {
	var body model.SingleSendRequest
	if !httputil.Decode(w, r, &body) {
		return
	}

	rec, err := c.Deliveries.SendOne(r.Context(), middleware.UserID(r.Context()), baseURL(c.PublicBaseURL, r), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Email sent successfully"
	if rec.Status != model.StatusSent {
		message = rec.ErrorMessage
	}
	httputil.OK(w, r, map[string]interface{}{
		"success":  rec.Status == model.StatusSent,
		"message":  message,
		"delivery": rec,
	})
}

func (c *EmailController) ProcessCSV(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CSVData  string `json:"csv_data"`
		Template string `json:"template"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.CSVData) == "" {
		httputil.BadRequest(w, r, "CSV data is required")
		return
	}

	result, err := c.Templates.ProcessCSV(r.Context(), middleware.UserID(r.Context()), body.CSVData, body.Template)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, result)
}

func (c *EmailController) GenerateEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Template  string          `json:"template"`
		Recipient model.Recipient `json:"recipient"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	email, err := c.Templates.GenerateEmail(r.Context(), middleware.UserID(r.Context()), body.Template, body.Recipient)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{
		"success": true,
		"subject": email.Subject,
		"body":    email.Body,
		"email":   email.Email,
	})
}

func (c *EmailController) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	records, pagination, err := c.Deliveries.ListDeliveries(r.Context(), middleware.UserID(r.Context()),
		page, pageSize, q.Get("campaign"), q.Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{
		"data":       records,
		"pagination": pagination,
	})
}

func (c *EmailController) CampaignStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Deliveries.CampaignStats(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, stats)
}

// Usage reports the persisted counters and the tier's monthly limit. A null limit means unlimited.
func (c *EmailController) Usage(w http.ResponseWriter, r *http.Request) {
	u, err := c.Deliveries.Usage(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var limit, remaining *int
	if l, ok := u.MonthlyLimit(); ok {
		rem, _ := u.RemainingQuota()
		limit, remaining = &l, &rem
	}
	httputil.OK(w, r, map[string]interface{}{
		"subscription_tier":   u.SubscriptionTier,
		"emails_generated":    u.EmailsGenerated,
		"emails_sent":         u.EmailsSent,
		"bulk_campaigns":      u.BulkCampaigns,
		"current_month_usage": u.CurrentMonthUsage,
		"monthly_limit":       limit,
		"remaining":           remaining,
	})
}
