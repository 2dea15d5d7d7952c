package appconfig

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfigDefaults(t *testing.T) {
	ac, err := ParseConfig(context.Background())
	assert.Nil(t, err)

	assert.Equal(t, "DEV", ac.Environment)
	assert.Equal(t, ":8080", ac.UIPort)
	assert.Equal(t, int64(1073741824), ac.MaxUploadBytes)
	assert.False(t, ac.OauthConfig.AuthEnabled)
	assert.Equal(t, "ROLE_ADMIN", ac.OauthConfig.AdminRole)
	assert.Equal(t, "ROLE_DATA_PUBLISHER", ac.OauthConfig.PublisherRole)
}

func TestParseConfigDerivedEndpoints(t *testing.T) {
	// trailing slash on the base url must not double up in derived endpoints
	t.Setenv("PUBLISH_API_BASE_URL", "http://publish.internal:8000/")

	ac, err := ParseConfig(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "http://publish.internal:8000/validate", ac.ValidateEndpointUrl)
	assert.Equal(t, "http://publish.internal:8000/validate/publish", ac.PublishEndpointUrl)
	assert.Equal(t, "http://publish.internal:8000/status", ac.StatusEndpointUrl)
	assert.Equal(t, "http://publish.internal:8000/events", ac.EventsEndpointUrl)
}

func TestParseConfigRejectsBadUploadLimit(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "0")

	_, err := ParseConfig(context.Background())
	assert.NotNil(t, err)
}

func TestParseConfigRequiresIssuerWhenAuthEnabled(t *testing.T) {
	t.Setenv("OAUTH_AUTH_ENABLED", "true")

	_, err := ParseConfig(context.Background())
	var missing *MissingConfigError
	assert.True(t, errors.As(err, &missing))
}

func TestAcceptedMimeTypes(t *testing.T) {
	conf := &AppConfig{AcceptedTypes: "application/zip, application/x-zip ,,application/x-zip-compressed"}
	assert.Equal(t, []string{"application/zip", "application/x-zip", "application/x-zip-compressed"}, conf.AcceptedMimeTypes())

	empty := &AppConfig{AcceptedTypes: ""}
	assert.Nil(t, empty.AcceptedMimeTypes())
}

func TestRootHandler(t *testing.T) {
	conf := &AppConfig{}
	rec := httptest.NewRecorder()
	conf.ServeHTTP(rec, httptest.NewRequest("GET", "/info", nil))

	assert.Equal(t, 200, rec.Code)

	var resp RootResp
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Nil(t, err)
	assert.Equal(t, "ATLAS", resp.System)
	assert.Equal(t, "publishing ui", resp.App)
	assert.NotEmpty(t, resp.ServerTime)
}
