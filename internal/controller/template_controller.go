// internal/controller/template_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/coldreach-backend/internal/httputil"
	"github.com/unclebandit/coldreach-backend/internal/middleware"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/service"
)

type TemplateController struct {
	Templates *service.TemplateService
}

func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	views, err := c.Templates.ListTemplates(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"data": views})
}

func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		Subject        string `json:"subject"`
		Body           string `json:"body"`
		RequiredFields string `json:"required_fields"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	tpl := &model.EmailTemplate{
		Name:           body.Name,
		Subject:        body.Subject,
		Body:           body.Body,
		RequiredFields: body.RequiredFields,
	}
	if err := c.Templates.CreateTemplate(r.Context(), middleware.UserID(r.Context()), tpl); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.Created(w, r, tpl)
}

func (c *TemplateController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := c.Templates.DeleteTemplate(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, r, map[string]interface{}{"success": true})
}
