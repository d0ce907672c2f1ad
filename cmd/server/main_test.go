package main

import (
	"context"
	"testing"

	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogger(t *testing.T) {
	logger := logrus.New()

	require.NoError(t, configureLogger(logger, "debug", "json"))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	err := configureLogger(logger, "loud", "text")
	assert.Error(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel(), "a bad level must not change the logger")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestMemoryStorageSkipsDatabase(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageMemory}

	pool, err := openPool(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, pool)

	assert.Error(t, requirePostgres(cfg, "migrate"))
	assert.NoError(t, requirePostgres(&config.Config{Storage: config.StoragePostgres}, "migrate"))
}
