package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

var store sessions.Store

// Init configures the cookie store backing browser sessions. secure must be
// false for plain-HTTP deployments (local dev): the CookieStore default of
// Secure+SameSite=None makes browsers drop the cookie entirely over http.
func Init(key string, secure bool) {
	cs := sessions.NewCookieStore([]byte(key))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store = cs
}

func Store() sessions.Store {
	return store
}
