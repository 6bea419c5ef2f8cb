package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api")
	apiKey := strings.TrimSpace(os.Getenv("EMBENCH_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("EMBENCH_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set EMBENCH_API_KEY or set EMBENCH_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)

	api.GET("/tasks", s.handleListTasks)
	api.GET("/tasks/:name", s.handleGetTask)

	api.GET("/results", s.handleListResults)
	api.GET("/results/latest", s.handleGetResult)

	api.GET("/models", s.handleListModels)
	api.GET("/summary", s.handleGetSummary)
	api.GET("/compare", s.handleCompare)

	return nil
}
