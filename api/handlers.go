package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"auto_sniper/models"
	"auto_sniper/storage"
)

// SearchStore is the queue the API writes to and reads results from.
type SearchStore interface {
	EnqueueSearch(ctx context.Context, job *models.SearchJob) error
	GetSearch(ctx context.Context, searchID uuid.UUID) (*models.SearchResult, error)
	Ping(ctx context.Context) error
}

// Worker is the search worker controlled through the API.
type Worker interface {
	Pause()
	Resume()
	MarshalStatus() ([]byte, error)
}

type Handler struct {
	store  SearchStore
	worker Worker
}

func NewHandler(store SearchStore, worker Worker) *Handler {
	return &Handler{store: store, worker: worker}
}

func (h *Handler) Bind(e *echo.Echo) {
	e.POST("/queue", h.queue)
	e.GET("/searches/:id", h.getSearch)
	e.GET("/health", h.health)
	e.POST("/pause", h.pause)
	e.POST("/resume", h.resume)
}

type queueRequest struct {
	Query     *models.SearchQuery `json:"query"`
	Platform  string              `json:"platform"`
	UserEmail string              `json:"userEmail"`
}

type queueResponse struct {
	Success  bool   `json:"success"`
	SearchID string `json:"searchId"`
	DBPath   string `json:"dbPath"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) queue(c echo.Context) error {
	var req queueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}
	if req.Query == nil || req.UserEmail == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Missing query or userEmail"})
	}
	if req.Platform == "" {
		req.Platform = models.PlatformAll
	}

	job := &models.SearchJob{
		Query:     *req.Query,
		Platform:  req.Platform,
		UserEmail: req.UserEmail,
	}
	if err := h.store.EnqueueSearch(c.Request().Context(), job); err != nil {
		log.Error().Err(err).Str("user", req.UserEmail).Msg("failed to queue search")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to queue"})
	}

	searchID := job.SearchID.String()
	log.Info().Str("search_id", searchID).Str("platform", job.Platform).Msg("search queued")
	return c.JSON(http.StatusOK, queueResponse{
		Success:  true,
		SearchID: searchID,
		DBPath:   "searches/" + searchID,
		Message:  "Queued. Results will be available at /searches/" + searchID + " when done.",
	})
}

func (h *Handler) getSearch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid search id"})
	}

	result, err := h.store.GetSearch(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Search not found"})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
	}
	status, err := h.worker.MarshalStatus()
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, status)
}

func (h *Handler) pause(c echo.Context) error {
	h.worker.Pause()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) resume(c echo.Context) error {
	h.worker.Resume()
	return c.NoContent(http.StatusNoContent)
}
