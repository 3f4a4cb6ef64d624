package server

import (
	"errors"
	"net/http"

	"detlsh/internal/index"
	pkgerrors "detlsh/pkg/errors"
	"detlsh/pkg/logger"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrIndexExists),
		errors.Is(err, pkgerrors.ErrDuplicateID),
		errors.Is(err, pkgerrors.ErrIndexNotBuilt):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidConfig),
		errors.Is(err, pkgerrors.ErrDimensionMismatch),
		errors.Is(err, pkgerrors.ErrIndexOutOfRange),
		errors.Is(err, pkgerrors.ErrInsufficientSample),
		errors.Is(err, pkgerrors.ErrEmptyDataset),
		errors.Is(err, pkgerrors.ErrUnsupportedIndexType),
		errors.Is(err, pkgerrors.ErrMisMatchKeysAndValues):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleCreateIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		name, err := s.manager.CreateIndex(ctx, req.Name, &index.IndexConfig{
			SpaceType:  req.SpaceType,
			IndexType:  req.IndexType,
			Dimension:  req.Dimension,
			Parameters: req.Parameters,
		})
		if err != nil {
			abort(c, err)
			return
		}
		if len(req.IDs) > 0 || len(req.Vectors) > 0 {
			if err := s.manager.BuildIndex(ctx, name, req.IDs, req.Vectors); err != nil {
				// a failed build leaves nothing behind
				if derr := s.manager.DeleteIndex(name); derr != nil {
					logger.Warn("failed to drop unbuilt index", "index", name, "error", derr)
				}
				abort(c, err)
				return
			}
		}

		info, err := s.manager.Info(name)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, info)
	}
}

func (s *Server) handleListIndexes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListIndexesResponse{Indexes: s.manager.List()})
	}
}

func (s *Server) handleGetIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := s.manager.Info(c.Param("name"))
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func (s *Server) handleDeleteIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.manager.DeleteIndex(c.Param("name")); err != nil {
			abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleBuildIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		var req BuildIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.manager.BuildIndex(c.Request.Context(), name, req.IDs, req.Vectors); err != nil {
			abort(c, err)
			return
		}
		info, err := s.manager.Info(name)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func (s *Server) handleAddVector() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddVectorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.manager.AddVector(c.Request.Context(), c.Param("name"), req.ID, req.Vector); err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": req.ID})
	}
}

func (s *Server) handleCandidates() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		var req CandidatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var (
			res *index.SearchResult
			err error
		)
		if req.Radius != nil {
			res, err = s.manager.RangeQuery(c.Request.Context(), name, req.Vector, *req.Radius)
		} else {
			res, err = s.manager.Candidates(c.Request.Context(), name, req.Vector)
		}
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(res))
	}
}

func (s *Server) handleSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := s.manager.Search(c.Request.Context(), c.Param("name"), req.Vector, req.TopK)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(res))
	}
}
