package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/services"
	"github.com/BradenHooton/kontakt/internal/session"
	pkghttp "github.com/BradenHooton/kontakt/pkg/http"
)

const outcomeInvalidBody = "invalid_body"

// ContactServiceInterface defines the submission pipeline used by ContactHandler
type ContactServiceInterface interface {
	Submit(ctx context.Context, sess *session.Session, ip string, input models.SubmissionInput) (*models.SubmissionResult, error)
}

// OutcomeObserver records submissions rejected before they reach the pipeline
type OutcomeObserver interface {
	ObserveSubmission(outcome string)
}

// ContactHandler handles contact form submissions
type ContactHandler struct {
	service  ContactServiceInterface
	ipConfig *pkghttp.IPConfig
	observer OutcomeObserver
	logger   *slog.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// SetObserver attaches metrics for method and body rejections.
func (h *ContactHandler) SetObserver(o OutcomeObserver) {
	h.observer = o
}

// Submit handles POST /api/contact. Every other method is answered with 405.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.observe(services.GateMethod)
		pkghttp.WriteMethodNotAllowed(w, models.MsgMethodNotAllowed, http.MethodPost)
		return
	}

	input, err := decodeSubmission(w, r)
	if err != nil {
		h.logger.Debug("invalid contact request body", slog.String("error", err.Error()))
		h.observe(outcomeInvalidBody)
		pkghttp.WriteBadRequest(w, models.MsgInvalidBody)
		return
	}

	sess := session.FromContext(r.Context())
	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Submit(r.Context(), sess, ip, input)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, result.Message, result.Redirect)
}

func (h *ContactHandler) writeSubmitError(w http.ResponseWriter, err error) {
	message := models.MsgInternal
	var rejection *models.RejectionError
	if errors.As(err, &rejection) && rejection.Message != "" {
		message = rejection.Message
	}

	switch {
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, message)
	case errors.Is(err, models.ErrCSRFInvalid):
		pkghttp.WriteForbidden(w, message)
	case errors.Is(err, models.ErrSpamSuspected),
		errors.Is(err, models.ErrTiming),
		errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, message)
	case errors.Is(err, models.ErrNotifyFailed):
		pkghttp.WriteInternalError(w, message)
	default:
		h.logger.Error("contact submission failed", slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, models.MsgInternal)
	}
}

func (h *ContactHandler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveSubmission(outcome)
	}
}
