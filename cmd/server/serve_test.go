package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinger55555/thenailcasino/internal/config"
	"github.com/kinger55555/thenailcasino/internal/repository"
)

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, closeStore, err := openStore(context.Background(), config.Config{Store: "memory"}, true)
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &repository.Memory{}, store)
	_, ok := store.(repository.Migrator)
	assert.False(t, ok, "memory store has no schema")
}

func TestPostgresStoreOwnsSchema(t *testing.T) {
	var s repository.Store = &repository.Postgres{}
	_, ok := s.(repository.Migrator)
	assert.True(t, ok)
}
