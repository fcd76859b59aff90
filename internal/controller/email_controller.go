// internal/controller/email_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/mailtrace/mailtrace-backend/internal/errors"
	"github.com/mailtrace/mailtrace-backend/internal/repository"
	"github.com/mailtrace/mailtrace-backend/internal/service"
)

type EmailController struct {
	EmailService *service.EmailService
}

func (c *EmailController) ListEmails(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	filter := repository.ListFilter{
		Status:   r.URL.Query().Get("status"),
		Query:    r.URL.Query().Get("q"),
		To:       r.URL.Query().Get("to"),
		Archived: r.URL.Query().Get("archived") == "true",
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}

	emails, pagination, err := c.EmailService.ListEmails(page, pageSize, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       emails,
		"pagination": pagination,
	})
}

func (c *EmailController) GetEmail(w http.ResponseWriter, r *http.Request) {
	id, err := emailID(r)
	if err != nil {
		http.Error(w, "invalid email id", http.StatusBadRequest)
		return
	}

	details, err := c.EmailService.GetEmailDetails(id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (c *EmailController) GetAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := emailID(r)
	if err != nil {
		http.Error(w, "invalid email id", http.StatusBadRequest)
		return
	}
	attachmentID, err := strconv.ParseInt(chi.URLParam(r, "attachment_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid attachment id", http.StatusBadRequest)
		return
	}

	att, payload, err := c.EmailService.ResolveAttachmentPayload(id, attachmentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if payload == nil {
		http.Error(w, "attachment payload not stored", http.StatusNotFound)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.Filename+`"`)
	w.Write(payload)
}

func (c *EmailController) ArchiveEmail(w http.ResponseWriter, r *http.Request) {
	c.mutate(w, r, c.EmailService.Archive, "archived")
}

func (c *EmailController) UnarchiveEmail(w http.ResponseWriter, r *http.Request) {
	c.mutate(w, r, c.EmailService.Unarchive, "unarchived")
}

func (c *EmailController) DeleteEmail(w http.ResponseWriter, r *http.Request) {
	c.mutate(w, r, c.EmailService.Delete, "deleted")
}

func (c *EmailController) ResendEmail(w http.ResponseWriter, r *http.Request) {
	c.mutate(w, r, c.EmailService.Resend, "resend queued")
}

func (c *EmailController) mutate(w http.ResponseWriter, r *http.Request, op func(int64) error, result string) {
	id, err := emailID(r)
	if err != nil {
		http.Error(w, "invalid email id", http.StatusBadRequest)
		return
	}

	if err := op(id); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     id,
		"status": result,
	})
}

func emailID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondError(w http.ResponseWriter, err error) {
	if _, ok := err.(*appErrors.ErrEmailNotFound); ok {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
