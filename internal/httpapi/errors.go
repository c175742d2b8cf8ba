package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"examflow/internal/auth"
	"examflow/internal/exam"
	"examflow/internal/user"
)

// writeError maps domain errors to HTTP responses. Anything unrecognised is
// logged and reported as a 500 without internals.
func (a *API) writeError(c *gin.Context, err error, fallback string) {
	var decodeErr *exam.DecodeError
	switch {
	case errors.Is(err, exam.ErrInvalidPatch), errors.Is(err, exam.ErrInvalidExam), errors.Is(err, user.ErrInvalidSignup):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, exam.ErrNotFound), errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongKind):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &decodeErr):
		a.logger.Error().Err(err).Str("exam_id", decodeErr.ID).Strs("problems", decodeErr.Problems).Msg("stored exam failed to decode")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": fallback})
	default:
		a.logger.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
