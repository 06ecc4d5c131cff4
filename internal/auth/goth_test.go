package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/markbates/goth/gothic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/interview-ace/internal/config"
	"github.com/jimdaga/interview-ace/internal/logging"
)

func TestInitProvidersWithoutCredentials(t *testing.T) {
	cfg := &config.Config{SessionSecret: "secret", Port: "8080"}

	assert.False(t, InitProviders(cfg, logging.Discard()))
	require.NotNil(t, gothic.Store)

	name, err := gothic.GetProviderName(httptest.NewRequest("GET", "/auth/google", nil))
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, name)
}

func TestStateStoreOptions(t *testing.T) {
	store := newStateStore(&config.Config{SessionSecret: "secret", Env: "production"})

	assert.True(t, store.Options.Secure)
	assert.True(t, store.Options.HttpOnly)
	assert.Equal(t, "/auth", store.Options.Path)
	assert.Equal(t, stateMaxAge, store.Options.MaxAge)
}
