package models

// User-facing messages. The site is German-only.
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgRateLimited      = "Zu viele Anfragen. Bitte versuchen Sie es später erneut."
	MsgCSRFInvalid      = "Sicherheitstoken ungültig. Bitte laden Sie die Seite neu."
	MsgSpamDetected     = "Spam erkannt."
	MsgTiming           = "Formular zu schnell ausgefüllt. Bitte versuchen Sie es erneut."
	MsgSpamContent      = "Nachricht enthält nicht erlaubte Inhalte."
	MsgNotifyFailed     = "Entschuldigung, beim Senden der Nachricht ist ein Fehler aufgetreten. Bitte versuchen Sie es später erneut."
	MsgSuccess          = "Vielen Dank für Ihre Nachricht! Wir werden uns bald bei Ihnen melden."
	MsgInvalidBody      = "Ungültige Anfrage."
	MsgInternal         = "Ein interner Fehler ist aufgetreten."

	MsgFirstNameRequired = "Vorname ist erforderlich (mindestens 2 Zeichen)"
	MsgLastNameRequired  = "Nachname ist erforderlich (mindestens 2 Zeichen)"
	MsgEmailRequired     = "E-Mail ist erforderlich"
	MsgEmailInvalid      = "Ungültige E-Mail-Adresse"
	MsgMessageRequired   = "Nachricht ist erforderlich (mindestens 10 Zeichen)"
)

// ValidationSeparator joins aggregated field errors into one message.
const ValidationSeparator = ", "
