package web

import (
	"encoding/gob"
	"encoding/hex"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	lf "github.com/bigredeye/catalystx/internal/logfield"
)

const (
	sessionName = "session"
	sessionKey  = "login"
	contextKey  = "session"
)

type Session struct {
	ProfessorID string
	Email       string
}

func init() {
	gob.Register(Session{})
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode hex %s", name)
	}
	if len(key) == 0 {
		return nil, nil
	}
	return key, nil
}

func setupAuth(s *server, r *gin.Engine) error {
	authKey, err := decodeKey("authenticationKey", s.config.Server.Cookies.AuthenticationKey)
	if err != nil {
		return err
	}
	if authKey == nil {
		return errors.New("Cookie authentication key is required")
	}
	encryptKey, err := decodeKey("encryptionKey", s.config.Server.Cookies.EncryptionKey)
	if err != nil {
		return err
	}

	store := cookie.NewStore(authKey, encryptKey)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		Secure:   s.config.Server.Cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	return nil
}

func (s *server) validateSession(c *gin.Context) {
	session := sessions.Default(c)
	v := session.Get(sessionKey)
	if v == nil {
		s.logger.Debug("Undefined session")
		abortWithStatus(c, http.StatusUnauthorized, errNotAuthenticated)
		return
	}
	info, ok := v.(Session)
	if !ok {
		s.logger.Error("Failed to deserialize session")
		session.Clear()
		_ = session.Save()
		abortWithStatus(c, http.StatusUnauthorized, errNotAuthenticated)
		return
	}
	if info.ProfessorID == "" {
		s.logger.Debug("Empty session")
		abortWithStatus(c, http.StatusUnauthorized, errNotAuthenticated)
		return
	}

	s.logger.Debug("Valid session", lf.ProfessorID(info.ProfessorID))

	c.Set(contextKey, info)
	c.Next()
}

func currentSession(c *gin.Context) Session {
	return c.MustGet(contextKey).(Session)
}
