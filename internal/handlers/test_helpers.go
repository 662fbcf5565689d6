package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/session"
	pkghttp "github.com/BradenHooton/kontakt/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewFormRequest creates a URL-encoded form request for testing
func NewFormRequest(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// NewJSONRequest creates a request with a JSON body for testing
func NewJSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSession attaches a fresh session to the request context
func WithSession(req *http.Request) (*http.Request, *session.Session) {
	sess := session.New(time.Hour)
	return req.WithContext(session.WithSession(req.Context(), sess)), sess
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertFailure checks that response is a failure body with the given message
func AssertFailure(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()
	var resp pkghttp.Response
	AssertJSONResponse(t, w, expectedStatus, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, expectedMessage, resp.Message)
	assert.Empty(t, resp.Redirect)
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	SubmitFunc func(ctx context.Context, sess *session.Session, ip string, input models.SubmissionInput) (*models.SubmissionResult, error)

	Calls     int
	LastInput models.SubmissionInput
	LastIP    string
}

func (m *MockContactService) Submit(ctx context.Context, sess *session.Session, ip string, input models.SubmissionInput) (*models.SubmissionResult, error) {
	m.Calls++
	m.LastInput = input
	m.LastIP = ip
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sess, ip, input)
	}
	return &models.SubmissionResult{Message: models.MsgSuccess}, nil
}

// MockTokenIssuer implements TokenIssuerInterface for testing
type MockTokenIssuer struct {
	IssueTokenFunc func(sess *session.Session) (models.CSRFToken, error)
}

func (m *MockTokenIssuer) IssueToken(sess *session.Session) (models.CSRFToken, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(sess)
	}
	return models.CSRFToken{Value: "token", IssuedAt: time.Now()}, nil
}

// MockOutcomeObserver implements OutcomeObserver for testing
type MockOutcomeObserver struct {
	Outcomes []string
}

func (m *MockOutcomeObserver) ObserveSubmission(outcome string) {
	m.Outcomes = append(m.Outcomes, outcome)
}
