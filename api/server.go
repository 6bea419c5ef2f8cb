// Package api serves benchmark results over HTTP.
package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/embench/internal/config"
	"github.com/stellarlinkco/embench/internal/store"
	"github.com/stellarlinkco/embench/internal/task"
)

type Server struct {
	router  *gin.Engine
	results store.Store
	tasks   *task.Registry
	config  *config.Config
}

func NewServer(cfg *config.Config, results store.Store, tasks *task.Registry) (*Server, error) {
	r := gin.New()
	s := &Server{
		router:  r,
		results: results,
		tasks:   tasks,
		config:  cfg,
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}
