package manufacturer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/manufacturer"
	"github.com/Ramsey-B/clover/internal/repositories/repotest"
)

func TestRepository_GetOrCreate(t *testing.T) {
	db := repotest.DB(t)
	repo := manufacturer.NewRepository(db, repotest.Logger())
	ctx := context.Background()
	supplierID := uuid.NewString()

	first, created, err := repo.GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, supplierID, first.SupplierManufacturerID)

	second, created, err := repo.GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	t.Run("name is part of the key", func(t *testing.T) {
		other, created, err := repo.GetOrCreate(ctx, supplierID, "Acme Corp")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, other.ID)
	})

	t.Run("concurrent callers share one row", func(t *testing.T) {
		key := uuid.NewString()
		ids := make([]string, 8)
		var wg sync.WaitGroup
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				record, _, err := repo.GetOrCreate(ctx, key, "")
				if assert.NoError(t, err) {
					ids[i] = record.ID
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})
}
