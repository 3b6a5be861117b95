package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Role           string    `json:"role"`
	MobileNumber   string    `json:"mobile_number,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		Username:       u.Username,
		Email:          u.Email,
		Role:           string(u.Role),
		MobileNumber:   u.MobileNumber,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// RegisterUser creates an account and returns a signed token for it.
func (h *Handler) RegisterUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.users.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return mapAuthError(c, err)
	}

	tokenStr, err := h.tokens.Issue(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Token: tokenStr, User: toUserResponse(u)})
}

// Login authenticates by username or email and returns a signed token.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.users.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return respondError(c, http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	tokenStr, err := h.tokens.Issue(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: tokenStr, User: toUserResponse(u)})
}

// Me returns the authenticated user's profile, freshly loaded so that role
// or contact changes made after token issuance are visible.
func (h *Handler) Me(c echo.Context) error {
	u, err := h.users.Get(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return respondError(c, http.StatusUnauthorized, "account no longer exists")
		}
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func mapAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, user.ErrExists):
		return respondError(c, http.StatusConflict, "username or email already taken")
	case errors.Is(err, user.ErrMissingUsername),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrWeakPassword):
		return badRequest(c, err.Error())
	default:
		return err
	}
}
