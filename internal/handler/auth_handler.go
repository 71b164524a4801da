package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	examService    *service.ExamService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	examService *service.ExamService,
	sessionService *service.ExamSessionService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		examService:    examService,
		sessionService: sessionService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates the identity and exam token, returns a JWT, the exam summary and
// whether an unfinished session can be resumed.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := service.NormalizeIdentity(&req)

	pkg, err := h.examService.GetPackageByToken(c.Request.Context(), id.Token)
	if err != nil {
		failPackage(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateStudentToken(id)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to sign student token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	resp := model.StudentLoginResponse{
		AccessToken: token,
		Identity:    id,
		Exam:        pkg.Summary(),
	}
	if rec, ok := h.sessionService.Resumable(c.Request.Context(), id); ok {
		resp.Resumable = true
		resp.Resume = rec.Summary()
	}

	h.log.Info().
		Str("token", id.Token).
		Str("class", id.ClassName).
		Bool("resumable", resp.Resumable).
		Msg("Student logged in")

	response.Success(c, http.StatusOK, resp)
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Checks the access code and returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.CheckAdminCode(req.AccessCode); err != nil {
		if errors.Is(err, service.ErrAdminDisabled) {
			response.Fail(c, http.StatusForbidden, response.ErrAdminDisabled)
			return
		}
		h.log.Warn().Str("ip", c.ClientIP()).Msg("Admin login rejected")
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateAdminToken()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"access_token": token})
}

// failPackage maps exam package lookup errors to responses.
func failPackage(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrInvalidEntryToken)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	default:
		log.Error().Err(err).Msg("Exam package lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
