package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// fakeFulfillmentStore reproduces the transaction semantics fulfillment
// relies on: writes are staged on the tx and only become visible on
// Commit, and a marker insert colliding with an existing ref fails with a
// unique violation.
type fakeFulfillmentStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*repository.ParentAccount
	markers  map[string]repository.PaymentFulfillment

	// raceOnInsert makes the marker insert fail with a unique violation
	// even when the earlier lookup saw no marker, reproducing a
	// concurrent delivery winning the race between check and insert.
	raceOnInsert bool
}

func newFakeFulfillmentStore() *fakeFulfillmentStore {
	return &fakeFulfillmentStore{
		accounts: make(map[uuid.UUID]*repository.ParentAccount),
		markers:  make(map[string]repository.PaymentFulfillment),
	}
}

func (f *fakeFulfillmentStore) addAccount(balance int64) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.accounts[id] = &repository.ParentAccount{
		ID:                 id,
		Email:              "parent@example.com",
		Name:               "Test Parent",
		HoursBalance:       balance,
		SubscriptionStatus: string(domain.SubscriptionStatusNone),
	}
	return id
}

func (f *fakeFulfillmentStore) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	require.True(t, ok)
	return account.HoursBalance
}

func (f *fakeFulfillmentStore) Begin(ctx context.Context) (FulfillmentTx, error) {
	return &fakeFulfillmentTx{store: f}, nil
}

// fakeFulfillmentTx stages all writes and applies them on Commit.
// Rollback discards them, as a database rollback would.
type fakeFulfillmentTx struct {
	store *fakeFulfillmentStore

	creditTo     uuid.UUID
	creditAmount int64
	marker       *repository.PaymentFulfillment
	activated    *uuid.UUID
}

func (tx *fakeFulfillmentTx) GetParentAccount(ctx context.Context, id uuid.UUID) (repository.ParentAccount, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	account, ok := tx.store.accounts[id]
	if !ok {
		return repository.ParentAccount{}, sql.ErrNoRows
	}
	return *account, nil
}

func (tx *fakeFulfillmentTx) DebitParentBalance(ctx context.Context, arg repository.DebitParentBalanceParams) (int64, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	account, ok := tx.store.accounts[arg.ID]
	if !ok || account.HoursBalance < arg.Amount {
		return 0, sql.ErrNoRows
	}
	tx.creditTo = arg.ID
	tx.creditAmount = -arg.Amount
	return account.HoursBalance - arg.Amount, nil
}

func (tx *fakeFulfillmentTx) CreditParentBalance(ctx context.Context, arg repository.CreditParentBalanceParams) (int64, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	account, ok := tx.store.accounts[arg.ID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	tx.creditTo = arg.ID
	tx.creditAmount = arg.Amount
	return account.HoursBalance + arg.Amount, nil
}

func (tx *fakeFulfillmentTx) GetPaymentFulfillment(ctx context.Context, paymentRef string) (repository.PaymentFulfillment, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	marker, ok := tx.store.markers[paymentRef]
	if !ok {
		return repository.PaymentFulfillment{}, sql.ErrNoRows
	}
	return marker, nil
}

func (tx *fakeFulfillmentTx) CreatePaymentFulfillment(ctx context.Context, arg repository.CreatePaymentFulfillmentParams) (repository.PaymentFulfillment, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if _, exists := tx.store.markers[arg.PaymentRef]; exists || tx.store.raceOnInsert {
		return repository.PaymentFulfillment{}, &pgconn.PgError{Code: "23505"}
	}
	tx.marker = &repository.PaymentFulfillment{
		ID:              uuid.New(),
		PaymentRef:      arg.PaymentRef,
		ParentAccountID: arg.ParentAccountID,
		Amount:          arg.Amount,
		PlanTag:         arg.PlanTag,
		Metadata:        arg.Metadata,
	}
	return *tx.marker, nil
}

func (tx *fakeFulfillmentTx) UpdateParentSubscriptionStatus(ctx context.Context, arg repository.UpdateParentSubscriptionStatusParams) error {
	id := arg.ID
	tx.activated = &id
	return nil
}

func (tx *fakeFulfillmentTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.creditAmount != 0 {
		tx.store.accounts[tx.creditTo].HoursBalance += tx.creditAmount
	}
	if tx.activated != nil {
		tx.store.accounts[*tx.activated].SubscriptionStatus = string(domain.SubscriptionStatusActive)
	}
	if tx.marker != nil {
		tx.store.markers[tx.marker.PaymentRef] = *tx.marker
	}
	return nil
}

func (tx *fakeFulfillmentTx) Rollback() error { return nil }

func creditGrant(accountID uuid.UUID, ref string, amount int64) domain.CreditGrant {
	return domain.CreditGrant{
		PaymentRef:      ref,
		ParentAccountID: accountID,
		Amount:          domain.Credits(amount),
		PlanTag:         domain.PlanTagCredits,
	}
}

func TestFulfill(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the account and records the marker", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(1000)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		result, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_1", 2000))
		require.NoError(t, err)
		assert.False(t, result.AlreadyProcessed)
		assert.Equal(t, domain.Credits(3000), result.NewBalance)
		assert.Equal(t, int64(3000), store.balance(t, accountID))

		marker, ok := store.markers["cs_test_1"]
		require.True(t, ok)
		assert.Equal(t, accountID, marker.ParentAccountID)
		assert.Equal(t, int64(2000), marker.Amount)
	})

	t.Run("second fulfillment of the same reference credits nothing", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(1000)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		first, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_2", 2000))
		require.NoError(t, err)
		require.False(t, first.AlreadyProcessed)

		second, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_2", 2000))
		require.NoError(t, err)
		assert.True(t, second.AlreadyProcessed)
		assert.Equal(t, int64(3000), store.balance(t, accountID))
	})

	t.Run("concurrent duplicate losing the insert race credits nothing", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		store.raceOnInsert = true
		accountID := store.addAccount(1000)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		result, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_3", 2000))
		require.NoError(t, err)
		assert.True(t, result.AlreadyProcessed)
		// The transaction never committed; the staged credit is discarded.
		assert.Equal(t, int64(1000), store.balance(t, accountID))
	})

	t.Run("subscription purchase activates the parent plan", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(0)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		grant := creditGrant(accountID, "cs_test_4", 1000)
		grant.PlanTag = domain.PlanTagSubscription

		result, err := svc.Fulfill(ctx, grant)
		require.NoError(t, err)
		assert.Equal(t, domain.Credits(1000), result.NewBalance)
		assert.Equal(t, string(domain.SubscriptionStatusActive), store.accounts[accountID].SubscriptionStatus)
	})

	t.Run("credit pack purchase leaves the plan alone", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(0)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		_, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_5", 1000))
		require.NoError(t, err)
		assert.Equal(t, string(domain.SubscriptionStatusNone), store.accounts[accountID].SubscriptionStatus)
	})

	t.Run("unknown account leaves no marker behind", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		svc := &fulfillmentService{store: store, logger: testLogger()}

		_, err := svc.Fulfill(ctx, creditGrant(uuid.New(), "cs_test_6", 1000))
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
		assert.Empty(t, store.markers)
	})

	t.Run("rejects missing payment reference", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(0)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		_, err := svc.Fulfill(ctx, creditGrant(accountID, "", 1000))
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		store := newFakeFulfillmentStore()
		accountID := store.addAccount(0)
		svc := &fulfillmentService{store: store, logger: testLogger()}

		_, err := svc.Fulfill(ctx, creditGrant(accountID, "cs_test_7", 0))
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}
