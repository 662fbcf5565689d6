package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/session"
	pkghttp "github.com/BradenHooton/kontakt/pkg/http"
)

// TokenIssuerInterface issues the per-session anti-forgery token
type TokenIssuerInterface interface {
	IssueToken(sess *session.Session) (models.CSRFToken, error)
}

// CSRFHandler serves the anti-forgery token to the contact page
type CSRFHandler struct {
	issuer TokenIssuerInterface
	logger *slog.Logger
	now    func() time.Time
}

// NewCSRFHandler creates a new CSRFHandler
func NewCSRFHandler(issuer TokenIssuerInterface, logger *slog.Logger) *CSRFHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSRFHandler{issuer: issuer, logger: logger, now: time.Now}
}

// Token handles GET /api/csrf-token. Repeated calls in one session return the same token;
// the timestamp is the time of the call.
func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		h.logger.Error("csrf token requested without session")
		pkghttp.WriteInternalError(w, models.MsgInternal)
		return
	}

	token, err := h.issuer.IssueToken(sess)
	if err != nil {
		h.logger.Error("failed to issue csrf token", slog.String("error", err.Error()))
		pkghttp.WriteInternalError(w, models.MsgInternal)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, models.CSRFTokenResponse{
		CSRFToken: token.Value,
		Timestamp: h.now().Unix(),
	})
}
