// Health HTTP handlers.
//
// Both endpoints report static service identity; neither touches storage or
// the completion API.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status" example:"UP"`
	Service   string    `json:"service" example:"AI Summary Service"`
	Version   string    `json:"version" example:"1.0.0"`
	Timestamp time.Time `json:"timestamp" example:"2025-01-01T12:00:00Z"`
}

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Message string `json:"message" example:"AI Summary Service API"`
	Version string `json:"version" example:"1.0.0"`
	Docs    string `json:"docs,omitempty" example:"/swagger/index.html"`
}

// Health godoc
// @ID          health
// @Summary     Health check
// @Description Reports service identity and the current server time.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{
		Status:    "UP",
		Service:   h.info.Name,
		Version:   h.info.Version,
		Timestamp: h.now().UTC(),
	})
}

// Index godoc
// @ID          index
// @Summary     API index
// @Description Names the API and points at its documentation.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.IndexResponse
// @Router      / [get]
func (h *Handlers) Index(c *gin.Context) {
	ok(c, http.StatusOK, IndexResponse{
		Message: h.info.Name + " API",
		Version: h.info.Version,
		Docs:    h.info.DocsPath,
	})
}
