package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/internal/health"
	"github.com/biodiversity-atlas/publishing-ui/internal/oauth"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
)

var ErrNoAuthHeader = errors.New("authorization header missing")
var ErrAuthHeaderInvalidFormat = errors.New("authorization header format is invalid")
var ErrTokenNotFound = errors.New("authorization token not found")

const UserSessionCookieName = "atlas_publish_session"

type identityContextKey struct{}

func NewAuthMiddleware(ctx context.Context, config appconfig.OauthConfig) (*AuthMiddleware, error) {
	var validator oauth.Validator = oauth.PassthroughValidator{}
	if config.AuthEnabled {
		if config.IssuerUrl == "" {
			return nil, errors.New("no issuer url provided")
		}
		v, err := oauth.NewOAuthValidator(ctx, config.IssuerUrl, config.RequiredScopes)
		if err != nil {
			slog.Error("error initializing oauth validator", "error", err)
			return nil, err
		}
		validator = v
		health.Register(v)
	}

	return &AuthMiddleware{
		authEnabled: config.AuthEnabled,
		validator:   validator,
	}, nil
}

type AuthMiddleware struct {
	authEnabled bool
	validator   oauth.Validator
}

// VerifyUserSession gates the HTML routes: requests without a valid token in
// the session or headers are redirected to the sign-in page with their
// original path remembered.
func (a AuthMiddleware) VerifyUserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.authEnabled {
			// no identity provider to consult, act as a local developer
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), oauth.LocalIdentity())))
			return
		}

		token, err := getAuthToken(r.Header)
		if err != nil {
			sess, _ := session.Store().Get(r, UserSessionCookieName)
			if t, ok := sess.Values["token"].(string); ok {
				token = t
			}
		}
		if token == "" {
			loginRedirect(w, r)
			return
		}

		if _, err := a.validator.ValidateJWT(r.Context(), token); err != nil {
			slog.Warn("request failed token validation", "path", r.URL.Path, "error", err.Error())
			loginRedirect(w, r)
			return
		}

		identity, err := oauth.ParseIdentity(token)
		if err != nil || identity.Expired() {
			loginRedirect(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (a AuthMiddleware) Validator() oauth.Validator {
	return a.validator
}

// WithIdentity stores the resolved identity on the request context so
// handlers receive it as a read-only value instead of re-reading session
// storage.
func WithIdentity(ctx context.Context, id *oauth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

func IdentityFromContext(ctx context.Context) *oauth.Identity {
	id, _ := ctx.Value(identityContextKey{}).(*oauth.Identity)
	return id
}

func loginRedirect(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.Store().Get(r, UserSessionCookieName)
	if sess != nil {
		v := r.URL.Path
		if r.URL.RawQuery != "" {
			v += "?" + r.URL.RawQuery
		}
		sess.Values["redirect"] = v
		sess.Save(r, w)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func getAuthToken(headers http.Header) (string, error) {
	authHeader := headers.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoAuthHeader
	}

	if len(authHeader) < len("Bearer ") {
		return "", ErrAuthHeaderInvalidFormat
	}

	return authHeader[len("Bearer "):], nil
}
