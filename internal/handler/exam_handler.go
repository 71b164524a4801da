package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/validator"
)

// ExamHandler handles administrator endpoints for one exam token.
type ExamHandler struct {
	examService    *service.ExamService
	resultService  *service.ResultService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	examService *service.ExamService,
	resultService *service.ResultService,
	sessionService *service.ExamSessionService,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		resultService:  resultService,
		sessionService: sessionService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// examToken reads and normalizes the :token path parameter, or ?token= on
// routes without one.
func examToken(c *gin.Context) (string, bool) {
	raw := c.Param("token")
	if raw == "" {
		raw = c.Query("token")
	}
	token := strings.ToUpper(strings.TrimSpace(raw))
	if !validator.IsExamToken(token) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidEntryToken)
		return "", false
	}
	return token, true
}

// GetExamResults godoc
// GET /api/v1/admin/exams/:token/results?page=1&per_page=20
// GET /api/v1/admin/results?token=&page=1&per_page=20
// Returns stored results for the token, newest first.
func (h *ExamHandler) GetExamResults(c *gin.Context) {
	token, ok := examToken(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	res, err := h.resultService.List(c.Request.Context(), token, page, perPage)
	if err != nil {
		h.log.Error().Err(err).Str("token", token).Msg("Failed to list results")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, res.Results,
		response.NewPagination(res.Page, res.PerPage, res.Total))
}

// RefreshExamCache godoc
// POST /api/v1/admin/exams/:token/refresh-cache
// Drops the cached package and reloads it from the database.
func (h *ExamHandler) RefreshExamCache(c *gin.Context) {
	token, ok := examToken(c)
	if !ok {
		return
	}

	if err := h.examService.InvalidateCache(c.Request.Context(), token); err != nil {
		h.log.Warn().Err(err).Str("token", token).Msg("Cache invalidation failed")
	}

	pkg, err := h.examService.GetPackageByToken(c.Request.Context(), token)
	if err != nil {
		failPackage(c, h.log, err)
		return
	}

	h.log.Info().Str("token", token).Int("questions", len(pkg.Questions)).Msg("Exam cache refreshed")
	response.Success(c, http.StatusOK, pkg.Summary())
}

// GetLiveSessions godoc
// GET /api/v1/admin/exams/:token/sessions
// Lists the sessions currently open on this instance.
func (h *ExamHandler) GetLiveSessions(c *gin.Context) {
	token, ok := examToken(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": h.sessionService.LiveSessions(token)})
}
