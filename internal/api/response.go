package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rshade/descartecerto/internal/impact"
	"github.com/rshade/descartecerto/internal/logging"
)

// Error codes returned in ErrorBody.Code.
const (
	CodeValidation     = "validation_error"
	CodeUserNotFound   = "user_not_found"
	CodeNotInitialized = "aggregate_not_initialized"
	CodeInternal       = "internal_error"
)

// Response is the envelope wrapping every JSON body.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: &ErrorBody{Code: code, Message: msg}})
}

// respondErr maps err onto a status code. Storage details are logged, not
// returned to the client.
func respondErr(c *gin.Context, err error) {
	var verr *impact.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, CodeValidation, verr.Error())
	case errors.Is(err, impact.ErrUserNotFound):
		respondError(c, http.StatusNotFound, CodeUserNotFound, impact.ErrUserNotFound.Error())
	case errors.Is(err, impact.ErrAggregateNotInitialized):
		respondError(c, http.StatusConflict, CodeNotInitialized, impact.ErrAggregateNotInitialized.Error())
	default:
		ctx := c.Request.Context()
		log := logging.FromContext(ctx)
		log.Error().
			Ctx(ctx).
			Str("component", "api").
			Str("path", c.FullPath()).
			Err(err).
			Msg("request failed")
		respondError(c, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
