package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/support-platform/internal/core/domain"
	"github.com/flowbit/support-platform/internal/core/ports"
)

func TestTransactionManager_WithTransaction(t *testing.T) {
	ctx := context.Background()
	tm := NewTransactionManager(testPool)
	repo := NewTicketRepository(testPool)

	t.Run("repository calls join the transaction", func(t *testing.T) {
		tenantID := newTestTenant()
		user := createTestUser(t, tenantID)
		ticket := createTestTicket(t, tenantID, user.ID, "tx visibility")

		err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
			ticket.Status = domain.StatusResolved
			if _, err := repo.Update(txCtx, ticket); err != nil {
				return err
			}

			// The uncommitted write is visible inside the transaction but not
			// through the pool.
			inside, err := repo.GetByID(txCtx, ports.TicketQuery{TenantID: tenantID, TicketID: ticket.ID})
			if err != nil {
				return err
			}
			assert.Equal(t, domain.StatusResolved, inside.Status)

			outside, err := repo.GetByID(ctx, ports.TicketQuery{TenantID: tenantID, TicketID: ticket.ID})
			if err != nil {
				return err
			}
			assert.Equal(t, domain.StatusOpen, outside.Status)
			return nil
		})
		require.NoError(t, err)

		committed, err := repo.GetByID(ctx, ports.TicketQuery{TenantID: tenantID, TicketID: ticket.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, committed.Status)
	})

	t.Run("error rolls back all writes", func(t *testing.T) {
		tenantID := newTestTenant()
		user := createTestUser(t, tenantID)
		ticket := createTestTicket(t, tenantID, user.ID, "tx rollback")

		boom := errors.New("boom")
		err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
			ticket.Status = domain.StatusClosed
			if _, err := repo.Update(txCtx, ticket); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		unchanged, err := repo.GetByID(ctx, ports.TicketQuery{TenantID: tenantID, TicketID: ticket.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, unchanged.Status)
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		tenantID := newTestTenant()
		user := createTestUser(t, tenantID)
		ticket := createTestTicket(t, tenantID, user.ID, "tx panic")

		assert.Panics(t, func() {
			_ = tm.WithTransaction(ctx, func(txCtx context.Context) error {
				ticket.Status = domain.StatusClosed
				if _, err := repo.Update(txCtx, ticket); err != nil {
					return err
				}
				panic("mid-transaction failure")
			})
		})

		unchanged, err := repo.GetByID(ctx, ports.TicketQuery{TenantID: tenantID, TicketID: ticket.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, unchanged.Status)
	})
}
