package oauth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoCredential = errors.New("no access token present")
var ErrCredentialExpired = errors.New("access token has expired")

// Identity is the read-only view of the signed-in user that publishing
// operations consume. It is resolved once per operation from the access token
// rather than read from ambient session storage.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Roles       []string
	ExpiresAt   time.Time
	AccessToken string
}

type identityClaims struct {
	UserID string   `json:"userid"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"role"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the user identity from a bearer token. The token's
// signature is checked upstream by the OIDC validator; here we only need the
// claims, matching what the publishing service itself does with the token.
func ParseIdentity(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredential
	}

	var claims identityClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, errors.Join(ErrTokenClaimsFailed, err)
	}

	id := &Identity{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Roles:       claims.Roles,
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// LocalIdentity stands in for the signed-in user when authentication is
// disabled, e.g. local development against a stubbed publishing service.
func LocalIdentity() *Identity {
	return &Identity{
		UserID:      "local-dev",
		DisplayName: "Local Developer",
		Roles:       []string{"ROLE_ADMIN", "ROLE_DATA_PUBLISHER"},
		AccessToken: "local-dev",
	}
}

func (id *Identity) Expired() bool {
	if id == nil {
		return true
	}
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}

func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Roles, role)
}

// CanPublish reports whether the identity carries one of the two roles that
// gate the publish operation.
func (id *Identity) CanPublish(adminRole, publisherRole string) bool {
	return id.HasRole(adminRole) || id.HasRole(publisherRole)
}
