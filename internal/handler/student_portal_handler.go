package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/middleware"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
)

// StudentPortalHandler handles student-facing endpoints outside the socket.
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
	examService    *service.ExamService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.ExamSessionService,
	examService *service.ExamService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService: sessionService,
		examService:    examService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// GetPaper godoc
// GET /api/v1/student/paper
// Returns the question paper of the caller's exam, without answer keys.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), id.Token)
	if err != nil {
		failPackage(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// GetResume godoc
// GET /api/v1/student/resume
// Reports whether the caller has an unfinished session and how far it got.
func (h *StudentPortalHandler) GetResume(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rec, found := h.sessionService.Resumable(c.Request.Context(), id)
	if !found {
		response.Success(c, http.StatusOK, gin.H{"resumable": false})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"resumable": true,
		"resume":    rec.Summary(),
	})
}
