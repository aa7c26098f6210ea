package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sondaumoi/storechain-backend/pkg/db/models"
	"github.com/sondaumoi/storechain-backend/pkg/enums"
	"github.com/sondaumoi/storechain-backend/pkg/pagination"
)

func TestListByStoreFiltersAndPaginates(t *testing.T) {
	t.Parallel()

	db := newOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	storeID := uuid.New()
	otherStore := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		status := enums.OrderStatusPending
		if i%2 == 1 {
			status = enums.OrderStatusProcessing
		}
		order := &models.Order{
			ID:              uuid.New(),
			StoreID:         storeID,
			CustomerID:      uuid.New(),
			TotalQuantity:   1,
			TotalPriceCents: 1000,
			FinalPriceCents: 1000,
			PaymentMethod:   enums.PaymentMethodCash,
			Status:          status,
			OrderTime:       base.Add(time.Duration(i) * time.Minute),
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		_, err := repo.CreateOrder(ctx, order)
		require.NoError(t, err)
	}
	_, err := repo.CreateOrder(ctx, &models.Order{
		ID:              uuid.New(),
		StoreID:         otherStore,
		CustomerID:      uuid.New(),
		TotalQuantity:   1,
		TotalPriceCents: 500,
		FinalPriceCents: 500,
		PaymentMethod:   enums.PaymentMethodCash,
		Status:          enums.OrderStatusPending,
		OrderTime:       base,
		CreatedAt:       base,
	})
	require.NoError(t, err)

	all, next, err := repo.ListByStore(ctx, storeID, nil, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Empty(t, next)

	pending := enums.OrderStatusPending
	filtered, _, err := repo.ListByStore(ctx, storeID, &pending, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)
	for _, order := range filtered {
		assert.Equal(t, enums.OrderStatusPending, order.Status)
	}

	firstPage, cursor, err := repo.ListByStore(ctx, storeID, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	require.NotEmpty(t, cursor)

	secondPage, _, err := repo.ListByStore(ctx, storeID, nil, pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	assert.Len(t, secondPage, 3)
	for _, order := range secondPage {
		assert.NotEqual(t, firstPage[0].ID, order.ID)
		assert.NotEqual(t, firstPage[1].ID, order.ID)
	}
}

func TestListByCustomer(t *testing.T) {
	t.Parallel()

	db := newOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := repo.CreateOrder(ctx, &models.Order{
			ID:              uuid.New(),
			StoreID:         uuid.New(),
			CustomerID:      customerID,
			TotalQuantity:   1,
			TotalPriceCents: 1000,
			FinalPriceCents: 1000,
			PaymentMethod:   enums.PaymentMethodCash,
			Status:          enums.OrderStatusPending,
			OrderTime:       time.Now(),
		})
		require.NoError(t, err)
	}

	mine, _, err := repo.ListByCustomer(ctx, customerID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, _, err := repo.ListByCustomer(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
