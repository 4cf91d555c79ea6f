package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "0.0.0.0:3000", config.Server.APIHost)
	assert.Equal(t, "bolt", config.Services.StorageProvider)
	assert.Equal(t, 365, config.Services.Issuer.ExpiryDays)
	assert.NotEmpty(t, config.Services.Issuer.DWNEndpoint)
	assert.NotEmpty(t, config.Services.Issuer.Claims.Country)
}

func TestLoadConfigFromTOML(t *testing.T) {
	contents := `
[server]
api_host = "0.0.0.0:8080"
log_level = "info"

[services]
storage = "redis"
redis_address = "localhost:6379"

[services.issuer]
dwn_endpoint = "https://dwn.test.example.com"
expiry_days = 30

[services.issuer.claims]
country = "GB"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "0.0.0.0:8080", config.Server.APIHost)
	assert.Equal(t, "redis", config.Services.StorageProvider)
	assert.Equal(t, "https://dwn.test.example.com", config.Services.Issuer.DWNEndpoint)
	assert.Equal(t, 30, config.Services.Issuer.ExpiryDays)
	assert.Equal(t, "GB", config.Services.Issuer.Claims.Country)

	// defaults survive a partial file
	assert.Equal(t, "Tier1", config.Services.Issuer.Claims.Tier)
}

func TestLoadConfigRejectsNonTOML(t *testing.T) {
	_, err := LoadConfig("config.yaml")
	assert.Error(t, err)
}

func TestPortOverride(t *testing.T) {
	t.Setenv(PortEnvVar, "9999")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", config.Server.APIHost)
}

func TestAuthURL(t *testing.T) {
	issuerConfig := IssuerServiceConfig{AuthGatewayBaseURL: "https://auth.example.com/authorize"}
	assert.Equal(t,
		"https://auth.example.com/authorize?issuerDid=did:key:z6Mk",
		issuerConfig.AuthURL("did:key:z6Mk"))
}
