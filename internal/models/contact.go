package models

import "time"

// Form field names posted by the contact page.
const (
	FieldFirstName     = "user_vorname"
	FieldLastName      = "user_nachname"
	FieldEmail         = "user_email"
	FieldMessage       = "user_message"
	FieldFormStartTime = "form_start_time"
	FieldHoneypot      = "website"
	FieldCSRFToken     = "csrf_token"
)

// SubmissionInput is one contact form submission as received.
// FormStartTime is the raw epoch-seconds value; empty means missing.
type SubmissionInput struct {
	FirstName     string `json:"user_vorname" validate:"required,min=2"`
	LastName      string `json:"user_nachname" validate:"required,min=2"`
	Email         string `json:"user_email" validate:"required,email"`
	Message       string `json:"user_message" validate:"required,min=10"`
	FormStartTime string `json:"form_start_time" validate:"-"`
	Honeypot      string `json:"website" validate:"-"`
	CSRFToken     string `json:"csrf_token" validate:"-"`
}

// SubmissionResult describes an accepted submission.
type SubmissionResult struct {
	ID       string
	Message  string
	Redirect string
}

// Notification is handed to a Notifier for delivery.
type Notification struct {
	Recipient     string
	Subject       string
	Body          string
	ReplyTo       string
	SenderDisplay string
	SentAt        time.Time
}
