package server

import (
	"net/http"

	"detlsh/internal/index"

	"github.com/gin-gonic/gin"
)

type Server struct {
	router  *gin.Engine
	manager *index.Manager
}

// New creates a new server instance
func New(manager *index.Manager) *Server {
	s := &Server{
		manager: manager,
		router:  gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealthCheck())
	s.router.POST("/v1/indexes", s.handleCreateIndex())
	s.router.GET("/v1/indexes", s.handleListIndexes())
	s.router.GET("/v1/indexes/:name", s.handleGetIndex())
	s.router.DELETE("/v1/indexes/:name", s.handleDeleteIndex())

	s.router.POST("/v1/indexes/:name/build", s.handleBuildIndex())
	s.router.POST("/v1/indexes/:name/vectors", s.handleAddVector())
	s.router.POST("/v1/indexes/:name/candidates", s.handleCandidates())
	s.router.POST("/v1/indexes/:name/search", s.handleSearch())
}

// Handler exposes the router, mainly for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr until the listener fails
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
