package ui

import (
	"net/http"
	"strings"

	"github.com/biodiversity-atlas/publishing-ui/internal/middleware"
	"github.com/biodiversity-atlas/publishing-ui/internal/oauth"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
	"github.com/gorilla/csrf"
)

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	render(w, loginTemplate, &loginData{CSRFField: csrf.TemplateField(r)})
}

// login stores a validated bearer token on the browser session and returns
// the user to the page that sent them here.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" {
		render(w, loginTemplate, &loginData{CSRFField: csrf.TemplateField(r), Error: "Provide an access token."})
		return
	}

	if _, err := s.auth.Validator().ValidateJWT(r.Context(), token); err != nil {
		logger.Warn("sign-in token rejected", "error", err.Error())
		render(w, loginTemplate, &loginData{CSRFField: csrf.TemplateField(r), Error: "The token was rejected by the identity provider."})
		return
	}
	identity, err := oauth.ParseIdentity(token)
	if err != nil || identity.Expired() {
		render(w, loginTemplate, &loginData{CSRFField: csrf.TemplateField(r), Error: "The token is unreadable or has expired."})
		return
	}

	sess, _ := session.Store().Get(r, middleware.UserSessionCookieName)
	sess.Values["token"] = token
	target := "/"
	if v, ok := sess.Values["redirect"].(string); ok && v != "" {
		target = v
		delete(sess.Values, "redirect")
	}
	if err := sess.Save(r, w); err != nil {
		logger.Error("failed to save session cookie", "error", err.Error())
	}
	logger.Info("user signed in", "userId", identity.UserID)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// logout clears the stored token and abandons the workflow bound to this
// browser session.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.Store().Get(r, middleware.UserSessionCookieName)
	delete(sess.Values, "token")
	if id, ok := sess.Values["workflow"].(string); ok && id != "" {
		s.registry.Drop(id)
		delete(sess.Values, "workflow")
	}
	if err := sess.Save(r, w); err != nil {
		logger.Error("failed to save session cookie", "error", err.Error())
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
