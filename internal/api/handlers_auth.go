// handlers_auth.go - Sign-in, registration and account handlers
package api

import (
	"net/http"

	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/labstack/echo/v4"
)

// AuthHandlerImpl implements the AuthHandler interface
type AuthHandlerImpl struct {
	dash *dashboard.Dashboard
}

// NewAuthHandler creates a new auth handler instance
func NewAuthHandler(dash *dashboard.Dashboard) AuthHandler {
	return &AuthHandlerImpl{dash: dash}
}

// HandleLogin forwards credentials to the backend, then loads the initial data
func (h *AuthHandlerImpl) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	user, err := h.dash.Login(c.Request().Context(), models.Credentials(req))
	if err != nil {
		return FromError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":     user,
		"redirect": "/",
	})
}

// HandleRegister creates an account on the backend. It does not sign in.
func (h *AuthHandlerImpl) HandleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	user, err := h.dash.Register(c.Request().Context(), models.Registration(req))
	if err != nil {
		return FromError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user":     user,
		"redirect": "/login",
	})
}

// HandleLogout ends the backend session and removes the persisted user
func (h *AuthHandlerImpl) HandleLogout(c echo.Context) error {
	if err := h.dash.Logout(c.Request().Context()); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"redirect": "/login"})
}

// HandleNav re-checks the backend session and returns navigation visibility
func (h *AuthHandlerImpl) HandleNav(c echo.Context) error {
	if _, err := h.dash.CheckAuth(c.Request().Context()); err != nil {
		c.Logger().Debugf("[API] Auth check: %v", err)
	}
	return c.JSON(http.StatusOK, h.dash.Nav())
}

// HandleChangePassword submits the settings form
func (h *AuthHandlerImpl) HandleChangePassword(c echo.Context) error {
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.dash.ChangePassword(c.Request().Context(), models.PasswordChange(req)); err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, h.dash.View().Settings)
}

// Request types

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

func (r *loginRequest) validate() error {
	if r.Username == "" || r.Password == "" {
		return NewValidationError("Username and password are required")
	}
	return nil
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *registerRequest) validate() error {
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return NewValidationError("All fields are required")
	}
	if r.Password != r.ConfirmPassword {
		return NewValidationError("Passwords do not match")
	}
	return nil
}

type passwordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *passwordRequest) validate() error {
	if r.OldPassword == "" || r.NewPassword == "" {
		return NewValidationError("All fields are required")
	}
	return nil
}
