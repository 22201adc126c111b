package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sanskar-502/Bajaj-Cloud/internal/domain"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// FromError maps domain errors onto HTTP statuses and codes. Unrecognized
// errors become a 500 with a generic message.
func FromError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return apierr.New(http.StatusBadRequest, "invalid_query", errors.New(domain.InvalidQueryMessage))
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return apierr.New(http.StatusBadRequest, "unsupported_format", err)
	case errors.Is(err, domain.ErrFileTooLarge):
		return apierr.New(http.StatusRequestEntityTooLarge, "file_too_large", err)
	case errors.Is(err, domain.ErrDownloadFailed):
		return apierr.New(http.StatusBadRequest, "download_failed", err)
	case errors.Is(err, domain.ErrExtractionFailed):
		return apierr.New(http.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "retrieval_unavailable", err)
	case errors.Is(err, domain.ErrCompletionFailed):
		return apierr.New(http.StatusBadGateway, "synthesis_failed", err)
	case errors.Is(err, domain.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal", errors.New("internal server error"))
}

// RespondErr writes the envelope for err using FromError.
func RespondErr(c *gin.Context, err error) {
	ae := FromError(err)
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
