package api

import "github.com/lspestrip/striprecipes/internal/archive"

// HealthzResponse is the GET /healthz payload.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ListRecipesResponse is the GET /v1/recipes payload.
type ListRecipesResponse struct {
	Recipes []archive.Entry `json:"recipes"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
