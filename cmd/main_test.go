package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duynhne/user-service/config"
)

func TestCorsConfig(t *testing.T) {
	all := corsConfig(config.CORSConfig{AllowedOrigins: []string{"*"}})
	assert.True(t, all.AllowAllOrigins)
	assert.False(t, all.AllowCredentials)
	require.NoError(t, all.Validate())

	listed := corsConfig(config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"https://shop.example.com"}, listed.AllowOrigins)
	assert.True(t, listed.AllowCredentials)
	require.NoError(t, listed.Validate())
}

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}
	st, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer st.close()

	assert.NotNil(t, st.repo)
	assert.NoError(t, st.ping(context.Background()))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	_, err := openStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
