package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

const (
	maxBodyBytes      = 64 << 10
	maxMultipartBytes = 1 << 20
)

var errUnsupportedMediaType = errors.New("unsupported content type")

// jsonSubmission lets JSON clients send form_start_time as epoch seconds or as a string.
type jsonSubmission struct {
	models.SubmissionInput
	FormStartTime stringOrNumber `json:"form_start_time"`
}

// stringOrNumber keeps the literal text of a JSON string or number.
type stringOrNumber string

func (s *stringOrNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = stringOrNumber(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = stringOrNumber(n.String())
	return nil
}

// decodeSubmission reads the posted contact form. URL-encoded, multipart
// and JSON bodies are accepted; a missing field decodes as empty.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (models.SubmissionInput, error) {
	var input models.SubmissionInput

	mediaType := "application/x-www-form-urlencoded"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return input, fmt.Errorf("parse content type: %w", err)
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var body jsonSubmission
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return input, fmt.Errorf("decode json: %w", err)
		}
		input = body.SubmissionInput
		input.FormStartTime = string(body.FormStartTime)
		return input, nil
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
		if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
			return input, fmt.Errorf("parse multipart form: %w", err)
		}
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return input, fmt.Errorf("parse form: %w", err)
		}
	default:
		return input, errUnsupportedMediaType
	}

	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &input,
	})
	if err != nil {
		return input, fmt.Errorf("create form decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return input, fmt.Errorf("decode form: %w", err)
	}
	return input, nil
}
