package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"profitshare/internal/distribution"
)

// retryAfterSeconds is advertised to clients on transient failures.
const retryAfterSeconds = "5"

// statusFor maps an engine error to an HTTP status code.
func statusFor(err error) int {
	switch distribution.KindOf(err) {
	case distribution.KindValidation:
		switch {
		case errors.Is(err, distribution.ErrDuplicateDistribution):
			return http.StatusConflict
		case errors.Is(err, distribution.ErrNoCirculatingTokens):
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case distribution.KindNotFound:
		return http.StatusNotFound
	case distribution.KindAuthorization:
		return http.StatusForbidden
	case distribution.KindStateConflict:
		return http.StatusConflict
	case distribution.KindTransientDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "code"}. Internal errors are not echoed
// to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	kind := distribution.KindOf(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message, "code": string(kind)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(distribution.KindValidation)})
}
