package database

import (
	stderrors "errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careops/careops-backend/pkg/errors"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "unique violation on item_number",
			err:      &pq.Error{Code: "23505", Constraint: "items_tenant_id_item_number_key"},
			sentinel: errors.ErrConflict,
			message:  "an item with this item number already exists",
		},
		{
			name:     "unique violation on order_number",
			err:      &pq.Error{Code: "23505", Constraint: "purchase_orders_tenant_id_order_number_key"},
			sentinel: errors.ErrConflict,
			message:  "a purchase order with this order number already exists",
		},
		{
			name:     "foreign key violation",
			err:      &pq.Error{Code: "23503", Constraint: "batches_item_id_fkey"},
			sentinel: errors.ErrBadRequest,
		},
		{
			name:     "quantity check constraint",
			err:      &pq.Error{Code: "23514", Constraint: "batches_quantity_non_negative"},
			sentinel: errors.ErrValidation,
		},
		{
			name:     "status check constraint",
			err:      &pq.Error{Code: "23514", Constraint: "purchase_orders_status_valid"},
			sentinel: errors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapPQError(tt.err)
			require.NotNil(t, appErr)
			assert.True(t, stderrors.Is(appErr, tt.sentinel))
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}
}

func TestMapPQError_NotPQError(t *testing.T) {
	assert.Nil(t, MapPQError(stderrors.New("plain error")))
	assert.Nil(t, MapPQError(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(stderrors.New("not a pq error")))
}
