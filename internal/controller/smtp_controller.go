// internal/controller/smtp_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/coldreach-backend/internal/httputil"
	"github.com/unclebandit/coldreach-backend/internal/middleware"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/service"
)

type SMTPController struct {
	Profiles *service.SMTPProfileService
}

// profileRequest is the writable part of an SMTP profile. Password is write-only.
type profileRequest struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	UseTLS    *bool  `json:"use_tls"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	ReplyTo   string `json:"reply_to"`
}

func (p profileRequest) toModel() *model.SMTPProfile {
	useTLS := true
	if p.UseTLS != nil {
		useTLS = *p.UseTLS
	}
	return &model.SMTPProfile{
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		Username:  p.Username,
		Password:  p.Password,
		UseTLS:    useTLS,
		FromEmail: p.FromEmail,
		FromName:  p.FromName,
		ReplyTo:   p.ReplyTo,
	}
}

func (c *SMTPController) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := c.Profiles.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []*model.SMTPProfile{}
	}
	httputil.OK(w, r, map[string]interface{}{"data": profiles})
}

func (c *SMTPController) Create(w http.ResponseWriter, r *http.Request) {
	var body profileRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	p := body.toModel()
	if err := c.Profiles.Create(r.Context(), middleware.UserID(r.Context()), p); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.Created(w, r, p)
}

func (c *SMTPController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body profileRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	p := body.toModel()
	if err := c.Profiles.Update(r.Context(), middleware.UserID(r.Context()), id, p); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, p)
}

func (c *SMTPController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.Profiles.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"success": true})
}

func (c *SMTPController) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.Profiles.SetDefault(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"success": true})
}

// Test checks a saved profile. A failed connection is still a 200 with success false.
func (c *SMTPController) Test(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	success, message, err := c.Profiles.Test(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"success": success, "message": message})
}

func (c *SMTPController) TestUnsaved(w http.ResponseWriter, r *http.Request) {
	var body profileRequest
	if !httputil.Decode(w, r, &body) {
		return
	}
	success, message, err := c.Profiles.TestUnsaved(r.Context(), body.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"success": success, "message": message})
}
