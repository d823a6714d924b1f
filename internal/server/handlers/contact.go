package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sitegate/sitegate/internal/admission"
	apperrors "github.com/sitegate/sitegate/internal/errors"
	"github.com/sitegate/sitegate/internal/mail"
	"github.com/sitegate/sitegate/internal/observability"
	"github.com/sitegate/sitegate/internal/store"
)

const (
	defaultMaxMessageLength = 1000
	maxContactBodyBytes     = 64 << 10
)

// spamKeywords triggers rejection when found in the name or message.
var spamKeywords = []string{"casino", "viagra", "lottery", "winner", "bitcoin"}

// ContactHandler accepts contact form submissions. Rate limiting happens in
// the admission interceptor before this handler runs; this layer only
// validates, persists, and notifies.
type ContactHandler struct {
	Store            *store.Store
	Mailer           mail.Mailer
	MaxMessageLength int
	AdminEmail       string
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Success bool `json:"success"`
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	if req.Name == "" || req.Email == "" || req.Message == "" {
		respondWithError(w, r, apperrors.NewValidationError("Missing required fields"))
		return
	}

	maxLen := h.MaxMessageLength
	if maxLen <= 0 {
		maxLen = defaultMaxMessageLength
	}
	if len(req.Message) > maxLen {
		respondWithError(w, r, apperrors.NewValidationError(
			fmt.Sprintf("Message is too long. Maximum %d characters allowed.", maxLen)))
		return
	}

	if containsSpam(req.Name) || containsSpam(req.Message) {
		respondWithError(w, r, apperrors.NewValidationError("Message detected as spam."))
		return
	}

	msg := store.ContactMessage{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		Addr:      admission.ClientAddr(r),
		UserAgent: admission.DeviceFingerprint(r),
	}

	id, err := h.Store.SaveContactMessage(r.Context(), msg)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabase(r.Context(), err, "Failed to store contact message"))
		return
	}

	h.notify(r, msg)

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Contact message stored",
			zap.Int64("id", id),
			zap.String("addr", msg.Addr))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(contactResponse{Success: true})
}

// notify sends the confirmation and admin notification. Delivery failures
// are logged, not surfaced; the message is already persisted.
func (h *ContactHandler) notify(r *http.Request, msg store.ContactMessage) {
	if h.Mailer == nil {
		return
	}

	ctx := r.Context()

	if err := h.Mailer.Send(ctx, mail.Message{
		To:      msg.Email,
		Subject: "Thank you for contacting us",
		Body:    fmt.Sprintf("Hi %s, we received your message and will get back to you soon.", msg.Name),
	}); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Confirmation mail failed", zap.Error(err))
	}

	if h.AdminEmail == "" {
		return
	}

	if err := h.Mailer.Send(ctx, mail.Message{
		To:      h.AdminEmail,
		Subject: "New contact form submission",
		Body:    fmt.Sprintf("From %s <%s>:\n\n%s", msg.Name, msg.Email, msg.Message),
	}); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Admin notification mail failed", zap.Error(err))
	}
}

func containsSpam(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range spamKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
