package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"relato/internal/api/middleware"
	"relato/internal/api/response"
	"relato/internal/auth"
	"relato/internal/models"
	"relato/internal/ratelimit"
	"relato/internal/store"
	"relato/internal/utils/logger"
)

// UserFinder is the user lookup the login flow needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuditRecorder persists login attempts. Failures to record are logged,
// never surfaced; auditing must not break logins.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.LoginAudit) error
}

type AuthHandler struct {
	users     UserFinder
	tokens    *auth.TokenService
	limiter   *ratelimit.Limiter
	loginTier ratelimit.Tier
	audit     AuditRecorder
	log       *logger.Logger
}

func NewAuthHandler(users UserFinder, tokens *auth.TokenService, limiter *ratelimit.Limiter, loginTier ratelimit.Tier, audit AuditRecorder) *AuthHandler {
	return &AuthHandler{
		users:     users,
		tokens:    tokens,
		limiter:   limiter,
		loginTier: loginTier,
		audit:     audit,
		log:       logger.New("AuthHandler"),
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates credentials and issues a session token. The
// login ceiling is checked before the credential check, so a 6th
// attempt inside the window is rejected even with a correct password.
// Only failed attempts count; success resets the counter.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, response.CodeValidationError, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return response.Fail(c, http.StatusBadRequest, response.CodeValidationError, err.Error())
	}

	ctx := c.Request().Context()
	key := c.RealIP()

	// The attempt counter is the defense against credential stuffing,
	// so a backend outage here fails closed.
	res, err := h.limiter.Check(ctx, h.loginTier, key)
	if err != nil {
		return response.Fail(c, http.StatusInternalServerError, response.CodeInternalError, "Login temporarily unavailable")
	}
	middleware.SetQuotaHeaders(c, res)
	if !res.Allowed {
		return response.Fail(c, http.StatusTooManyRequests, h.loginTier.Code, "Too many login attempts, try again later")
	}

	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.failLogin(c, key, req.Email, "")
		}
		// An outage is not a failed attempt: no counter, no audit row.
		h.log.Warn("Failed to load user for login: %v", err)
		return response.Fail(c, http.StatusInternalServerError, response.CodeInternalError, "Login temporarily unavailable")
	}
	if !user.Active {
		return h.failLogin(c, key, req.Email, user.ID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return h.failLogin(c, key, req.Email, user.ID)
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		return response.Fail(c, http.StatusInternalServerError, response.CodeInternalError, "Failed to issue token")
	}

	if err := h.limiter.Reset(ctx, h.loginTier, key); err != nil {
		h.log.Warn("Failed to reset login counter for %s: %v", key, err)
	}
	h.recordAudit(c, user.ID, req.Email, true)

	return response.OK(c, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"name":      user.Name,
			"role":      user.Role,
			"companyId": user.CompanyID,
		},
	})
}

func (h *AuthHandler) failLogin(c echo.Context, key, email, userID string) error {
	if err := h.limiter.Record(c.Request().Context(), h.loginTier, key); err != nil {
		h.log.Warn("Failed to record login attempt for %s: %v", key, err)
	}
	h.recordAudit(c, userID, email, false)
	return response.Fail(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid credentials")
}

func (h *AuthHandler) recordAudit(c echo.Context, userID, email string, succeeded bool) {
	// No account matched: the user_id column is uuid-typed, so the row
	// must carry NULL, not the empty string.
	var uid *string
	if userID != "" {
		uid = &userID
	}
	entry := &models.LoginAudit{
		UserID:    uid,
		Email:     email,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Succeeded: succeeded,
		Detail:    datatypes.JSON([]byte(`{"method":"password"}`)),
	}
	if err := h.audit.Record(c.Request().Context(), entry); err != nil {
		h.log.Warn("Failed to record login audit for %s: %v", email, err)
	}
}

// GetMe returns the resolved authentication context.
func (h *AuthHandler) GetMe(c echo.Context) error {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return response.Fail(c, http.StatusUnauthorized, response.CodeNoToken, "Authentication required")
	}

	return response.OK(c, http.StatusOK, map[string]interface{}{
		"id":          principal.ID,
		"email":       principal.Email,
		"name":        principal.Name,
		"role":        principal.Role,
		"companyId":   principal.CompanyID,
		"company":     principal.Company,
		"permissions": principal.Codes(),
	})
}
