package container

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-be/internal/config"
	"resto-be/pkg/logger"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		Environment:  "test",
		RedisURL:     redisURL,
		IdentityKey:  "test-signing-key",
		RestaurantID: "resto-1",
		Port:         "8080",
	}
}

func newContainer(t *testing.T) *Container {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	container, err := New(testConfig("redis://"+mr.Addr()), logger.NewNop(), nil)
	require.NoError(t, err)
	require.NotNil(t, container)
	return container
}

func TestNewRequiresIdentityKey(t *testing.T) {
	cfg := testConfig("redis://localhost:6379/0")
	cfg.IdentityKey = ""

	container, err := New(cfg, logger.NewNop(), nil)
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestNewRequiresRedis(t *testing.T) {
	container, err := New(testConfig(""), logger.NewNop(), nil)
	assert.Error(t, err)
	assert.Nil(t, container)

	container, err = New(testConfig("invalid://redis-url"), logger.NewNop(), nil)
	assert.Error(t, err)
	assert.Nil(t, container)
}

func TestNewWiresAllServices(t *testing.T) {
	container := newContainer(t)

	assert.NotNil(t, container.Services)
	assert.NotNil(t, container.GetIdentityService())
	assert.NotNil(t, container.GetProfileService())
	assert.NotNil(t, container.Repositories)
	assert.NotNil(t, container.Repositories.User)
	assert.NotNil(t, container.Repositories.Profile)
	assert.NotNil(t, container.GetRedisClient())
	assert.NotNil(t, container.GetLogger())
}

func TestGetConfig(t *testing.T) {
	container := newContainer(t)

	cfg := container.GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "resto-1", cfg.RestaurantID)
	assert.Equal(t, "8080", cfg.Port)
}

func TestEnvironmentPrefixing(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Development environment",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Production environment",
			environment:    "production",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, err := miniredis.Run()
			require.NoError(t, err)
			t.Cleanup(mr.Close)

			cfg := testConfig("redis://" + mr.Addr())
			cfg.Environment = tt.environment

			container, err := New(cfg, logger.NewNop(), nil)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedPrefix, container.GetRedisClient().KeyBuilder.GetPrefix())
		})
	}
}
