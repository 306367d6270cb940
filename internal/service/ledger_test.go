package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// fakeLedgerStore reproduces the database's conditional-write semantics in
// memory: the debit only applies when the balance still covers the amount
// at write time, under a mutex standing in for row-level locking.
type fakeLedgerStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*repository.ParentAccount
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{accounts: make(map[uuid.UUID]*repository.ParentAccount)}
}

func (f *fakeLedgerStore) addAccount(balance int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.accounts[id] = &repository.ParentAccount{
		ID:           id,
		Email:        "parent@example.com",
		Name:         "Test Parent",
		HoursBalance: balance,
	}
	return id
}

func (f *fakeLedgerStore) GetParentAccount(ctx context.Context, id uuid.UUID) (repository.ParentAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ParentAccount{}, sql.ErrNoRows
	}
	return *account, nil
}

func (f *fakeLedgerStore) DebitParentBalance(ctx context.Context, arg repository.DebitParentBalanceParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[arg.ID]
	if !ok || account.HoursBalance < arg.Amount {
		return 0, sql.ErrNoRows
	}
	account.HoursBalance -= arg.Amount
	return account.HoursBalance, nil
}

func (f *fakeLedgerStore) CreditParentBalance(ctx context.Context, arg repository.CreditParentBalanceParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[arg.ID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	account.HoursBalance += arg.Amount
	return account.HoursBalance, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLedgerDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("debits exact amount", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(4500) // 45.00 credits
		ledger := NewLedgerService(store, testLogger())

		balance, err := ledger.Debit(ctx, id, domain.Credits(3000))
		require.NoError(t, err)
		assert.Equal(t, domain.Credits(1500), balance)
	})

	t.Run("allows draining to exactly zero", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(4500)
		ledger := NewLedgerService(store, testLogger())

		balance, err := ledger.Debit(ctx, id, domain.Credits(4500))
		require.NoError(t, err)
		assert.Equal(t, domain.Credits(0), balance)
	})

	t.Run("rejects insufficient funds without mutating", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(1000) // 10.00 credits
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Debit(ctx, id, domain.Credits(4500))
		require.Error(t, err)
		assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
		// Message names required, available, and shortfall.
		msg := domain.ErrorMessage(err)
		assert.Contains(t, msg, "45.00")
		assert.Contains(t, msg, "10.00")
		assert.Contains(t, msg, "35.00")

		balance, err := ledger.Balance(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.Credits(1000), balance)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(1000)
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Debit(ctx, id, 0)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(1000)
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Debit(ctx, id, domain.Credits(-500))
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("missing account is not found, not payment", func(t *testing.T) {
		store := newFakeLedgerStore()
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Debit(ctx, uuid.New(), domain.Credits(100))
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

// TestLedgerDebit_Concurrent races many debits against one balance. Only as
// many debits as the balance covers may succeed, and the final balance must
// be exactly the starting balance minus the successful debits. The balance
// never goes negative.
func TestLedgerDebit_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newFakeLedgerStore()

	const (
		startBalance = 1000 // 10.00 credits
		debitAmount  = 150  // 1.50 credits
		workers      = 20
	)
	id := store.addAccount(startBalance)
	ledger := NewLedgerService(store, testLogger())

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(ctx, id, domain.Credits(debitAmount))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	}

	// 1000 / 150 = 6 debits fit.
	assert.Equal(t, 6, succeeded)

	balance, err := ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Credits(startBalance-6*debitAmount), balance)
	assert.GreaterOrEqual(t, int64(balance), int64(0))
}

func TestLedgerCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits amount", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(500)
		ledger := NewLedgerService(store, testLogger())

		balance, err := ledger.Credit(ctx, id, domain.Credits(2000))
		require.NoError(t, err)
		assert.Equal(t, domain.Credits(2500), balance)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		store := newFakeLedgerStore()
		id := store.addAccount(500)
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Credit(ctx, id, 0)
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("missing account is not found", func(t *testing.T) {
		store := newFakeLedgerStore()
		ledger := NewLedgerService(store, testLogger())

		_, err := ledger.Credit(ctx, uuid.New(), domain.Credits(100))
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}
