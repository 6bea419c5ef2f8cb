package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/embench/internal/result"
	"github.com/stellarlinkco/embench/internal/store"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	if s.tasks == nil {
		respondError(c, http.StatusInternalServerError, errors.New("no task registry"))
		return
	}

	names := s.tasks.Names()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		d, ok := s.tasks.Get(name)
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"name":       d.Name,
			"type":       d.Type,
			"dataset":    d.Dataset,
			"main_score": d.MainScore,
			"splits":     d.EvalSplits(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTask(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing task name"))
		return
	}
	if s.tasks == nil {
		respondError(c, http.StatusInternalServerError, errors.New("no task registry"))
		return
	}

	d, ok := s.tasks.Get(name)
	if !ok {
		respondError(c, http.StatusNotFound, errors.New("task not found"))
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleListResults(c *gin.Context) {
	filter := store.Filter{
		ModelID:  strings.TrimSpace(c.Query("model")),
		TaskName: strings.TrimSpace(c.Query("task")),
		Revision: strings.TrimSpace(c.Query("revision")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		filter.Limit = n
	}

	results, err := s.results.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []*result.TaskResult{}
	}
	c.JSON(http.StatusOK, results)
}

// handleGetResult returns the latest result for one (model, task) pair.
// Result records written under an older schema read as absent.
func (s *Server) handleGetResult(c *gin.Context) {
	model := strings.TrimSpace(c.Query("model"))
	taskName := strings.TrimSpace(c.Query("task"))
	if model == "" || taskName == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing model or task"))
		return
	}

	res, err := s.results.Load(c.Request.Context(), model, taskName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrStaleSchema) {
			respondError(c, http.StatusNotFound, errors.New("result not found"))
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListModels(c *gin.Context) {
	results, err := s.results.List(c.Request.Context(), store.Filter{})
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	seen := make(map[string]struct{})
	models := make([]string, 0)
	for _, r := range results {
		if _, ok := seen[r.ModelID]; ok {
			continue
		}
		seen[r.ModelID] = struct{}{}
		models = append(models, r.ModelID)
	}
	sort.Strings(models)
	c.JSON(http.StatusOK, models)
}

func (s *Server) handleGetSummary(c *gin.Context) {
	model := strings.TrimSpace(c.Query("model"))
	if model == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing model"))
		return
	}

	results, err := s.results.List(c.Request.Context(), store.Filter{ModelID: model})
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	summary, err := result.Summarize(model, results)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCompare(c *gin.Context) {
	modelA := strings.TrimSpace(c.Query("a"))
	modelB := strings.TrimSpace(c.Query("b"))
	if modelA == "" || modelB == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing models to compare"))
		return
	}

	cmp, err := s.results.Compare(c.Request.Context(), modelA, modelB)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func respondError(c *gin.Context, code int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(code, gin.H{"error": msg})
}
