package models

import "time"

// CSRFToken is the anti-forgery token bound to a session.
type CSRFToken struct {
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"issued_at"`
}

// CSRFTokenResponse is returned by the token endpoint.
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
	Timestamp int64  `json:"timestamp"`
}
