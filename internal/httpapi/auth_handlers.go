package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"examflow/internal/auth"
	"examflow/internal/user"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type sessionResponse struct {
	auth.TokenPair
	Profile user.Profile `json:"profile"`
}

func (a *API) signup(c *gin.Context) {
	var in user.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := a.users.Signup(c.Request.Context(), in)
	if err != nil {
		a.writeError(c, err, "could not create account")
		return
	}
	a.issue(c, http.StatusCreated, p)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	p, err := a.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err, "could not sign in")
		return
	}
	a.issue(c, http.StatusOK, p)
}

// refresh swaps a refresh token for a new pair. The role is re-read from the
// profile so a changed role takes effect on the next refresh.
func (a *API) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	claims, err := a.tokens.Parse(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		a.writeError(c, err, "could not refresh session")
		return
	}
	p, err := a.users.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "profile not found"})
			return
		}
		a.writeError(c, err, "could not refresh session")
		return
	}
	a.issue(c, http.StatusOK, p)
}

func (a *API) me(c *gin.Context) {
	p, _ := auth.ProfileFrom(c)
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (a *API) issue(c *gin.Context, status int, p user.Profile) {
	pair, err := a.tokens.Issue(p.UID, string(p.Role))
	if err != nil {
		a.writeError(c, err, "could not issue tokens")
		return
	}
	c.JSON(status, sessionResponse{TokenPair: pair, Profile: p})
}
