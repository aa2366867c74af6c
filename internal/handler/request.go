package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies (10 MB).
const MaxBodyBytes = 10 << 20

// decodeJSON reads the request body into dst. On failure it writes the
// error response itself and returns false:
//   - body over MaxBodyBytes → 413
//   - anything unparsable    → 400 "Invalid request body"
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "payload_too_large",
				Message: "Request body too large",
			})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return false
	}
	return true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type itemRequest struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Tags     tagList `json:"tags"`
	Content  string  `json:"content"`
}

type accountNameRequest struct {
	AccountName string `json:"account_name"`
}

// tagList accepts whatever the client sent for "tags". An array keeps only
// its string entries; any other JSON value (null, a string, an object)
// means no tags. Cleaning the strings themselves is the service's job.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*t = tagList{}
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	for _, e := range entries {
		if s, ok := e.(string); ok {
			*t = append(*t, s)
		}
	}
	return nil
}
