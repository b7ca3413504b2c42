package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyreel/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func statusFor(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "validation":
		return http.StatusBadRequest
	case "busy":
		return http.StatusConflict
	case "transient", "permanent", "no_content", "timeout":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	kind := services.Kind(err)
	c.AbortWithStatusJSON(statusFor(kind), errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: message, Kind: "validation"})
}
