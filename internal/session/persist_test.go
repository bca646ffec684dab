package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoragePersister_SaveLoadClear(t *testing.T) {
	kv := newSQLiteKV(t)
	p := NewStoragePersister(kv)
	ctx := context.Background()

	_, ok, err := p.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := AuthState{User: &User{ID: "u-1", Email: "a@b.c", Role: RoleUser}, Token: "tok", ExpiresAt: 42}
	require.NoError(t, p.Save(ctx, want))

	got, ok, err := p.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, p.Clear(ctx))
	_, ok, err = p.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoragePersister_LoadGarbage(t *testing.T) {
	kv := newSQLiteKV(t)
	require.NoError(t, kv.Set(context.Background(), "auth", []byte("nope")))

	_, ok, err := NewStoragePersister(kv).Load(context.Background())
	assert.False(t, ok)
	assert.ErrorContains(t, err, "decode auth state")
}

func TestStoragePersister_CSRFTokenIsStable(t *testing.T) {
	kv := newSQLiteKV(t)
	p := NewStoragePersister(kv)
	ctx := context.Background()

	a, err := p.CSRFToken(ctx)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := p.CSRFToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.NoError(t, p.Clear(ctx))
	c, err := p.CSRFToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, c, "logout does not rotate the csrf token")

	require.NoError(t, kv.Clear(ctx))
	d, err := p.CSRFToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}
