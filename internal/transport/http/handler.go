package http

import (
	"errors"
	"net/http"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/persistence"
	"github.com/gin-gonic/gin"
)

// Handler exposes the persistence facade and the host/join flows as JSON
// endpoints for the UI.
type Handler struct {
	store *persistence.Service
	host  *app.HostService
	joins *app.JoinService
}

// NewHandler wires the HTTP handlers.
func NewHandler(store *persistence.Service, host *app.HostService, joins *app.JoinService) *Handler {
	return &Handler{store: store, host: host, joins: joins}
}

type createSessionRequest struct {
	QuizType domain.QuizType `json:"quizType"`
}

type finishRequest struct {
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
}

type statusRequest struct {
	Status domain.ParticipantStatus `json:"status"`
}

type errorPayload struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewRouter registers all routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api")
	api.POST("/sessions", h.createSession)
	api.GET("/sessions/:quizId", h.getSession)
	api.POST("/sessions/:quizId/start", h.startQuiz)
	api.POST("/sessions/:quizId/finish", h.finishQuiz)
	api.POST("/sessions/:quizId/participants", h.join)
	api.GET("/sessions/:quizId/participants", h.listParticipants)
	api.PATCH("/sessions/:quizId/participants/:deviceId", h.updateStatus)
	api.GET("/host", h.hostStatus)
	api.GET("/results", h.listResults)
	api.DELETE("/results", h.clearResults)
	return r
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	hosted, err := h.host.CreateSession(c.Request.Context(), req.QuizType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hosted)
}

// getSession also reports whether the calling device already joined when
// deviceId is given as a query parameter.
func (h *Handler) getSession(c *gin.Context) {
	status, err := h.joins.Lookup(c.Request.Context(), c.Param("quizId"), c.Query("deviceId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) startQuiz(c *gin.Context) {
	participants, err := h.host.StartQuiz(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *Handler) finishQuiz(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	result, err := h.host.FinishQuiz(c.Request.Context(), c.Param("quizId"), req.Score, req.TotalQuestions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "percentage": result.Percentage()})
}

func (h *Handler) join(c *gin.Context) {
	var req app.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "invalid request body"})
		return
	}
	req.QuizID = c.Param("quizId")
	if req.Browser == "" {
		req.Browser = c.Request.UserAgent()
	}
	joined, err := h.joins.Join(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, joined)
}

func (h *Handler) listParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": h.store.GetParticipants(c.Request.Context(), c.Param("quizId"))})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, errorPayload{Error: "status must be joined, active or completed", Field: "status"})
		return
	}
	ok := h.store.UpdateStatus(c.Request.Context(), c.Param("quizId"), c.Param("deviceId"), req.Status)
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

func (h *Handler) hostStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.host.Status())
}

func (h *Handler) listResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.store.GetAllResults(c.Request.Context())})
}

func (h *Handler) clearResults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": h.store.ClearResults(c.Request.Context())})
}

func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorPayload{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errorPayload{Error: "session not found"})
	case errors.Is(err, domain.ErrSessionCompleted):
		c.JSON(http.StatusConflict, errorPayload{Error: "session already completed"})
	case errors.Is(err, domain.ErrInvalidQuizType):
		c.JSON(http.StatusBadRequest, errorPayload{Error: err.Error(), Field: "quizType"})
	default:
		c.JSON(http.StatusInternalServerError, errorPayload{Error: "internal error"})
	}
}
