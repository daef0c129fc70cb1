package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
	"github.com/optctl/opt-orchestrator/internal/paramspace"
)

// errorEnvelope is the {detail:{code,message,details?}} body every
// failed request returns.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeError classifies err into the four-code taxonomy
// (E.PARAM_INVALID, E.FORBIDDEN, E.NOT_FOUND, E.INTERNAL) and writes
// the envelope with the matching HTTP status. Anything unrecognized
// falls back to 500 E.INTERNAL rather than leaking the error text.
func writeError(c *gin.Context, err error) {
	var invalid *paramspace.InvalidError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"detail": errorEnvelope{
			Code: "E.PARAM_INVALID", Message: invalid.Message, Details: invalid.Details,
		}})
	case errors.Is(err, optdomain.ErrParamInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"detail": errorEnvelope{
			Code: "E.PARAM_INVALID", Message: err.Error(),
		}})
	case errors.Is(err, optdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": errorEnvelope{
			Code: "E.FORBIDDEN", Message: "owner mismatch",
		}})
	case errors.Is(err, optdomain.ErrJobNotFound), errors.Is(err, optdomain.ErrTaskNotFound), errors.Is(err, optdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": errorEnvelope{
			Code: "E.NOT_FOUND", Message: "not found",
		}})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": errorEnvelope{
			Code: "E.INTERNAL", Message: "internal error",
		}})
	}
}
