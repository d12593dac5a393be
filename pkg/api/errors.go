package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pierrefittel/okura/pkg/analysis"
	"github.com/pierrefittel/okura/pkg/db"
	"github.com/pierrefittel/okura/pkg/srs"
	"github.com/pierrefittel/okura/pkg/textfile"
)

// ErrValidation marks malformed requests.
var ErrValidation = errors.New("validation failed")

// ValidationError reports the first failed constraint of a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// newValidationError converts validator output into a ValidationError.
func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: "malformed request"}
	}
	fe := verrs[0]
	return &ValidationError{Field: jsonFieldName(fe), Message: tagMessage(fe.Tag())}
}

func jsonFieldName(fe validator.FieldError) string {
	// Namespace looks like "createListRequest.title" or "[2].term".
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 && !strings.HasPrefix(ns, "[") {
		ns = ns[i+1:]
	}
	return ns
}

func tagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, textfile.ErrTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, db.ErrCardNotFound),
		errors.Is(err, db.ErrListNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrValidation),
		errors.Is(err, analysis.ErrUnsupportedLanguage),
		errors.Is(err, analysis.ErrDecode),
		errors.Is(err, srs.ErrInvalidQuality),
		errors.Is(err, db.ErrInvalidCard):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err. Server faults
// get a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		verr   *ValidationError
		decErr *analysis.DecodeError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error()

	case errors.Is(err, textfile.ErrTooLarge):
		return "File is too large"
	case errors.As(err, new(*http.MaxBytesError)):
		return "Request body is too large"

	case errors.Is(err, db.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, db.ErrListNotFound):
		return "List not found"

	case errors.Is(err, analysis.ErrUnsupportedLanguage):
		return "Unsupported language"
	case errors.As(err, &decErr):
		return decodeMessage(decErr)
	case errors.Is(err, srs.ErrInvalidQuality):
		return fmt.Sprintf("Quality must be between %d and %d", srs.MinQuality, srs.MaxQuality)
	case errors.Is(err, db.ErrInvalidCard):
		return "Invalid card data"

	default:
		return "An unexpected error occurred"
	}
}

func decodeMessage(e *analysis.DecodeError) string {
	reason := "unsupported content"
	switch {
	case errors.Is(e, textfile.ErrBinary):
		reason = "file is not text"
	case errors.Is(e, textfile.ErrUnknownEncoding):
		reason = "unknown text encoding"
	}
	if e.Filename == "" {
		return "Could not decode file: " + reason
	}
	return fmt.Sprintf("Could not decode %s: %s", e.Filename, reason)
}
