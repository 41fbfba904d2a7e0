package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	MsgEmailExists = "Email already exists"
	MsgServerError = "Server error"
	MsgNotFound    = "Not found"
)

// APIError is the error body of every endpoint: {"error": "<message>"}.
// The request id travels in the X-Request-Id header.
type APIError struct {
	Error string `json:"error"`
}

func RespondError(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, APIError{Error: message})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondNotFound(ctx *gin.Context) {
	RespondError(ctx, http.StatusNotFound, MsgNotFound)
}

// RespondInternal never carries details; log them before calling.
func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, MsgServerError)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message)
}
