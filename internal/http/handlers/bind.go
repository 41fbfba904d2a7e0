package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/userreg/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// BindJSON decodes the body into out. On failure it answers 400 with the
// generic body message; the decoder detail only goes to the debug log.
func BindJSON(ctx *gin.Context, log *slog.Logger, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		log.DebugContext(ctx.Request.Context(), "request body rejected", describeBindError(err)...)
		RespondBadRequest(ctx, user.MsgInvalidBody)

		return false
	}

	return true
}

func describeBindError(err error) []any {
	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []any{"reason", "invalid_json_syntax", "offset", syntaxError.Offset}
	}

	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		return []any{"reason", "invalid_json_type", "field", typeError.Field, "want", typeError.Type.String()}
	}

	var maxBytesError *http.MaxBytesError

	if errors.As(err, &maxBytesError) {
		return []any{"reason", "body_too_large", "limit", maxBytesError.Limit}
	}

	// final fallback if the error could not be deciphered
	return []any{"reason", err.Error()}
}
