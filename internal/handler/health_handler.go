package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness and API information endpoints.
type HealthHandler struct {
	name        string
	version     string
	description string
	pingDB      Pinger
}

// NewHealthHandler creates a health handler. pingDB is called on every /info request.
func NewHealthHandler(name, version, description string, pingDB Pinger) *HealthHandler {
	return &HealthHandler{name: name, version: version, description: description, pingDB: pingDB}
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// InfoResponse is returned by /info.
type InfoResponse struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	DatabaseConnected bool   `json:"database_connected"`
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: h.name + " is running",
		Version: h.version,
	})
}

// Info godoc
// @Summary API information and database connectivity
// @Tags health
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /api/v1/info [get]
func (h *HealthHandler) Info(c echo.Context) error {
	connected := false
	if h.pingDB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		connected = h.pingDB(ctx) == nil
	}

	return c.JSON(http.StatusOK, InfoResponse{
		Name:              h.name,
		Version:           h.version,
		Description:       h.description,
		DatabaseConnected: connected,
	})
}
