package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin access code is not configured")
)

// TokenType distinguishes student vs admin tokens.
type TokenType string

const (
	TokenTypeStudent TokenType = "student"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	Name      string    `json:"name,omitempty"`       // Student only
	ClassName string    `json:"class_name,omitempty"` // Student only
	School    string    `json:"school,omitempty"`     // Student only
	BirthDate string    `json:"birth_date,omitempty"` // Student only
	ExamToken string    `json:"exam_token,omitempty"` // Student only
}

// Identity rebuilds the student identity carried by the token.
func (c *Claims) Identity() model.StudentIdentity {
	return model.StudentIdentity{
		Name:      c.Name,
		ClassName: c.ClassName,
		School:    c.School,
		BirthDate: c.BirthDate,
		Token:     c.ExamToken,
	}
}

// AuthService issues and validates access tokens.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// NormalizeIdentity trims the identity fields and upper-cases the token.
func NormalizeIdentity(req *model.StudentLoginRequest) model.StudentIdentity {
	return model.StudentIdentity{
		Name:      strings.Join(strings.Fields(req.Name), " "),
		ClassName: strings.TrimSpace(req.ClassName),
		School:    strings.TrimSpace(req.School),
		BirthDate: strings.TrimSpace(req.BirthDate),
		Token:     strings.ToUpper(strings.TrimSpace(req.Token)),
	}
}

// GenerateStudentToken creates a JWT carrying the student identity. The
// session key doubles as the subject.
func (s *AuthService) GenerateStudentToken(id model.StudentIdentity) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   exam.DeriveSessionKey(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeStudent,
		Name:      id.Name,
		ClassName: id.ClassName,
		School:    id.School,
		BirthDate: id.BirthDate,
		ExamToken: id.Token,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// CheckAdminCode compares the access code against the configured bcrypt hash.
func (s *AuthService) CheckAdminCode(code string) error {
	if s.cfg.AdminCodeHash == "" {
		return ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminCodeHash), []byte(code)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateAdminToken creates a JWT for the administrator.
func (s *AuthService) GenerateAdminToken() (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
