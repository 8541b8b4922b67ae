package echodash

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/views"
)

const contextSessionKey = "session"

// sessionMiddleware attaches the browser's views.Session to the context.
// The session id travels in a signed JWT cookie, re-issued on every request so that
// it expires after the configured TTL of inactivity.
func (s *server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := ""
		if cookie, err := ctx.Cookie(s.deps.Conf.Session.CookieName); err == nil {
			id = s.parseSessionToken(cookie.Value)
		}
		if id == "" {
			id = uuid.New().String()
		}

		token, err := s.generateSessionToken(id)
		if err != nil {
			return err
		}
		ctx.SetCookie(&http.Cookie{
			Name:     s.deps.Conf.Session.CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.deps.Conf.Session.TTL / time.Second),
			Secure:   s.deps.Conf.Session.CookieSecure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		ctx.Set(contextSessionKey, s.deps.Sessions.Get(id))
		return next(ctx)
	}
}

func (s *server) generateSessionToken(id string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Id:        id,
		Issuer:    s.deps.Conf.AppName,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.deps.Conf.Session.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.deps.Conf.SecretKey))
}

// parseSessionToken returns the session id of a valid token, "" otherwise.
func (s *server) parseSessionToken(tokenStr string) string {
	claims := new(jwt.StandardClaims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.deps.Conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	if _, err := uuid.Parse(claims.Id); err != nil {
		return ""
	}
	return claims.Id
}

func getContextSession(ctx echo.Context) *views.Session {
	sess, _ := ctx.Get(contextSessionKey).(*views.Session)
	return sess
}

// getContextPerson identifies the session in logs.
func getContextPerson(ctx echo.Context) core.Person {
	if sess := getContextSession(ctx); sess != nil {
		return core.Person{ID: sess.ID}
	}
	return core.Person{}
}
