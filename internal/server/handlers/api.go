package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/scoutline/scoutline/internal/errors"
)

// maxRequestBytes caps JSON request bodies on the /api routes.
const maxRequestBytes = 1 << 20

// apiValidate is shared by every /api request type.
var apiValidate = validator.New(validator.WithRequiredStructEnabled())

var errInvalidJSON = errors.New("invalid JSON body")

// decodeJSON reads one JSON document from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidJSON
	}
	return nil
}

// validationMessage turns the first validator failure into a short sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := jsonFieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required", "min":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return field + " is invalid"
	}
}

// jsonFieldPath lower-cases the first letter of each namespace segment and drops the
// root type name: chatRequest.Messages[0].Role becomes messages[0].role.
func jsonFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToLower(part[:1]) + part[1:]
	}
	return strings.Join(parts, ".")
}

func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	apperrors.RespondWithMessage(w, r, apperrors.NewInvalidInputError(message))
}

func respondValidation(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithMessage(w, r, apperrors.NewValidationError(validationMessage(err)))
}

func respondInternal(w http.ResponseWriter, r *http.Request, message string) {
	apperrors.RespondWithMessage(w, r, apperrors.NewInternalError(message))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
