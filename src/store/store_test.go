package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, ok, err := m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Save(ctx, Session{Identity: "Ana", Fields: map[string]string{"role": "dentist"}}))
	got, ok, err := m.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana", got.Identity)
	assert.Equal(t, "dentist", got.Fields["role"])

	require.NoError(t, m.Clear(ctx))
	_, ok, err = m.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreClearWhenEmpty(t *testing.T) {
	m := NewMemoryStore()
	assert.NoError(t, m.Clear(context.Background()))
	assert.NoError(t, m.Clear(context.Background()))
}

func TestMemoryStoreRejectsEmptyIdentity(t *testing.T) {
	m := NewMemoryStore()
	assert.Error(t, m.Save(context.Background(), Session{}))
}

func TestMemoryStoreIsolatesFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	fields := map[string]string{"role": "assistant"}
	require.NoError(t, m.Save(ctx, Session{Identity: "Luis", Fields: fields}))

	fields["role"] = "admin"
	got, _, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "assistant", got.Fields["role"])
}

func TestSessionEncoding(t *testing.T) {
	data, err := encodeSession(Session{Identity: "Carla", Fields: map[string]string{"clinic": "north"}})
	require.NoError(t, err)

	decoded, err := decodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, "Carla", decoded.Identity)
	assert.Equal(t, "north", decoded.Fields["clinic"])

	_, err = decodeSession([]byte(`{"fields":{}}`))
	assert.Error(t, err)
	_, err = decodeSession([]byte(`not json`))
	assert.Error(t, err)
	_, err = encodeSession(Session{})
	assert.Error(t, err)
}
