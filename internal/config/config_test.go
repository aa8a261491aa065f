package config_test

import (
	"testing"

	"github.com/secure-command-center/go-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_HostnameSelectsEnvironment(t *testing.T) {
	tests := []struct {
		hostname   string
		production bool
	}{
		{hostname: "localhost", production: false},
		{hostname: "127.0.0.1", production: false},
		{hostname: "dashboard.example.com", production: true},
	}
	for _, tc := range tests {
		t.Run(tc.hostname, func(t *testing.T) {
			cfg := config.New(tc.hostname)
			require.Equal(t, tc.production, cfg.IsProduction())
		})
	}
}

func TestDefaults(t *testing.T) {
	dev := config.New("localhost")
	require.Equal(t, "http://localhost:8000/api", dev.APIBaseURL())
	require.Equal(t, "http://localhost:8000", dev.AuthBaseURL())
	require.Empty(t, dev.ChatAPIBaseURL())

	prod := config.New("dashboard.example.com")
	require.Equal(t, "https://dashboard-control-back.onrender.com/api", prod.APIBaseURL())
	require.Equal(t, "https://dashboard-control-back.onrender.com", prod.AuthBaseURL())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CC_API_BASE_URL", "http://backend.test/api")
	t.Setenv("CC_AUTH_BASE_URL", "http://backend.test")
	t.Setenv("CC_CHAT_API_BASE_URL", "http://chat.test")

	cfg := config.New("localhost")
	require.Equal(t, "http://backend.test/api", cfg.APIBaseURL())
	require.Equal(t, "http://backend.test", cfg.AuthBaseURL())
	require.Equal(t, "http://chat.test", cfg.ChatAPIBaseURL())
}
