package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verihire/onboard/internal/domain"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	rec := NewRecord(domain.RoleTechie, domain.CountryUS)
	rec.Form.Email = "jane@example.com"

	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Form.Email)
	assert.Equal(t, domain.RoleTechie, got.Role)
	assert.Equal(t, domain.CountryUS, got.Country)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	rec := NewRecord(domain.RoleTechie, domain.CountryUS)
	rec.Nav.Errors = domain.FieldErrors{"email": "required"}
	require.NoError(t, store.Put(ctx, rec))

	first, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	first.Form.Email = "mutated@example.com"
	first.Nav.Errors["email"] = "mutated"

	second, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Form.Email, "stored form mutated through returned copy")
	assert.Equal(t, "required", second.Nav.Errors["email"], "stored errors mutated through returned copy")
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(context.Background(), uuid.New())
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	rec := NewRecord(domain.RoleTechie, domain.CountryUS)
	require.NoError(t, store.Put(ctx, rec))

	time.Sleep(25 * time.Millisecond)

	_, err := store.Get(ctx, rec.ID)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	assert.Equal(t, 0, store.Len(), "expired record not evicted on read")
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, NewRecord(domain.RoleTechie, domain.CountryUS)))
	}

	time.Sleep(25 * time.Millisecond)
	store.sweep(time.Now())

	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	rec := NewRecord(domain.RoleTechie, domain.CountryUS)
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Delete(ctx, rec.ID))

	_, err := store.Get(ctx, rec.ID)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))

	// Deleting twice is fine.
	require.NoError(t, store.Delete(ctx, rec.ID))
}
