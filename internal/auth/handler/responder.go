package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jay-neo/cinebase/internal/apperr"
	"github.com/jay-neo/cinebase/internal/auth"
	"github.com/jay-neo/cinebase/internal/session"
	"github.com/jay-neo/cinebase/internal/user"
)

// Users loads the user record a session is issued for.
type Users interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// TokenIssuer mints the access and refresh token pair.
type TokenIssuer interface {
	IssueAccessToken(auth.PrivateIdentity) (string, error)
	IssueRefreshToken(auth.PrivateIdentity) (string, error)
}

// Responder turns a resolved user id into an authenticated response.
type Responder struct {
	users  Users
	tokens TokenIssuer
	cookie session.CookieOptions
	now    func() time.Time
}

func NewResponder(users Users, tokens TokenIssuer, cookie session.CookieOptions) *Responder {
	return &Responder{
		users:  users,
		tokens: tokens,
		cookie: cookie,
		now:    time.Now,
	}
}

// RespondAuthenticated issues a token pair for userID and writes
// {message, user} with the Authorization header and refresh cookie set.
// Nothing is written when it returns an error.
func (r *Responder) RespondAuthenticated(c *gin.Context, userID string, status int, message string) error {
	u, err := r.users.FindByID(c.Request.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		return apperr.UserNotFound(err)
	}
	if err != nil {
		return apperr.Internal(err)
	}

	private := auth.NewPrivateIdentity(u)

	access, err := r.tokens.IssueAccessToken(private)
	if err != nil {
		return err
	}
	refresh, err := r.tokens.IssueRefreshToken(private)
	if err != nil {
		return err
	}

	if status == 0 {
		status = http.StatusAccepted
	}

	c.Header("Authorization", "Bearer "+access)
	session.SetRefreshCookie(c.Writer, refresh, r.now(), r.cookie)
	c.JSON(status, gin.H{
		"message": message,
		"user":    private.Public(),
	})
	return nil
}

// Logout expires the refresh cookie with the same attribute profile.
func (r *Responder) Logout(c *gin.Context) {
	session.ClearRefreshCookie(c.Writer, r.cookie)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
