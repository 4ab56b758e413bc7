package productvendor_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/repotest"
	"github.com/Ramsey-B/clover/internal/repositories/productvendor"
)

func TestRepository_GetOrCreate(t *testing.T) {
	db := repotest.DB(t)
	repo := productvendor.NewRepository(db, repotest.Logger())
	ctx := context.Background()
	supplierID := uuid.NewString()

	first, created, err := repo.GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Acme", first.SupplierVendorName)

	second, created, err := repo.GetOrCreate(ctx, supplierID, "Acme")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
