package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careops/careops-backend/internal/inventory/repository"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{repository.OrderDraft, repository.OrderPending, true},
		{repository.OrderDraft, repository.OrderCancelled, true},
		{repository.OrderDraft, repository.OrderApproved, false},
		{repository.OrderDraft, repository.OrderOrdered, false},
		{repository.OrderDraft, repository.OrderReceived, false},
		{repository.OrderPending, repository.OrderApproved, true},
		{repository.OrderPending, repository.OrderCancelled, true},
		{repository.OrderPending, repository.OrderOrdered, false},
		{repository.OrderApproved, repository.OrderOrdered, true},
		{repository.OrderApproved, repository.OrderCancelled, true},
		{repository.OrderApproved, repository.OrderReceived, false},
		{repository.OrderOrdered, repository.OrderReceived, true},
		{repository.OrderOrdered, repository.OrderCancelled, true},
		{repository.OrderOrdered, repository.OrderPending, false},
		{repository.OrderReceived, repository.OrderCancelled, false},
		{repository.OrderReceived, repository.OrderPending, false},
		{repository.OrderCancelled, repository.OrderPending, false},
		{repository.OrderCancelled, repository.OrderReceived, false},
		// No self transitions
		{repository.OrderDraft, repository.OrderDraft, false},
		{repository.OrderOrdered, repository.OrderOrdered, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, repository.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, repository.IsTerminalStatus(repository.OrderReceived))
	assert.True(t, repository.IsTerminalStatus(repository.OrderCancelled))
	assert.False(t, repository.IsTerminalStatus(repository.OrderDraft))
	assert.False(t, repository.IsTerminalStatus(repository.OrderPending))
	assert.False(t, repository.IsTerminalStatus(repository.OrderApproved))
	assert.False(t, repository.IsTerminalStatus(repository.OrderOrdered))
}

func TestPurchaseOrder_ComputeMoney(t *testing.T) {
	order := &repository.PurchaseOrder{
		TotalCents: 12550,
		Lines: []repository.PurchaseOrderLine{
			{UnitPriceCents: 250, LineTotalCents: 2500},
			{UnitPriceCents: 1005, LineTotalCents: 10050},
		},
	}

	order.ComputeMoney()

	assert.Equal(t, 125.50, order.Total)
	assert.Equal(t, 2.50, order.Lines[0].UnitPrice)
	assert.Equal(t, 25.00, order.Lines[0].LineTotal)
	assert.Equal(t, 10.05, order.Lines[1].UnitPrice)
	assert.Equal(t, 100.50, order.Lines[1].LineTotal)
}
