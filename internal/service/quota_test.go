package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/repository"
)

// fakeQuotaStore keeps student billing rows in memory.
type fakeQuotaStore struct {
	rows   map[uuid.UUID]*repository.GetStudentBillingRow
	resets int
}

func newFakeQuotaStore() *fakeQuotaStore {
	return &fakeQuotaStore{rows: make(map[uuid.UUID]*repository.GetStudentBillingRow)}
}

func (f *fakeQuotaStore) addStudent(row repository.GetStudentBillingRow) uuid.UUID {
	id := uuid.New()
	row.ID = id
	if row.Name == "" {
		row.Name = "Test Student"
	}
	f.rows[id] = &row
	return id
}

func (f *fakeQuotaStore) GetStudentBilling(ctx context.Context, id uuid.UUID) (repository.GetStudentBillingRow, error) {
	row, ok := f.rows[id]
	if !ok {
		return repository.GetStudentBillingRow{}, sql.ErrNoRows
	}
	return *row, nil
}

func (f *fakeQuotaStore) ResetStudentDailyCounters(ctx context.Context, arg repository.ResetStudentDailyCountersParams) error {
	row, ok := f.rows[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	row.DailyAiRequests = 0
	row.DailyHomeworkGen = 0
	row.LastQuotaReset = arg.LastQuotaReset
	f.resets++
	return nil
}

func (f *fakeQuotaStore) IncrementStudentAiRequests(ctx context.Context, id uuid.UUID) error {
	row, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	row.DailyAiRequests++
	return nil
}

func (f *fakeQuotaStore) IncrementStudentHomeworkGen(ctx context.Context, id uuid.UUID) error {
	row, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	row.DailyHomeworkGen++
	return nil
}

func testQuotaConfig(now time.Time) QuotaConfig {
	return QuotaConfig{
		Limits:   domain.FreeTierLimits{ChatPerDay: 15, HomeworkPerDay: 5},
		Location: time.UTC,
		now:      func() time.Time { return now },
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestQuotaCheckAndReserve(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("school funded student is unmetered even when saturated", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			BillingModel:    nullStr("school_pays"),
			DailyAiRequests: 999,
			LastQuotaReset:  now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, domain.QuotaSourceSchool, decision.Source)
	})

	t.Run("trial subscription is unlimited", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			ParentAccountID:    uuid.NullUUID{UUID: uuid.New(), Valid: true},
			SubscriptionStatus: nullStr("trial"),
			DailyAiRequests:    50,
			LastQuotaReset:     now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, domain.QuotaSourceSubscription, decision.Source)
	})

	t.Run("free tier allows below ceiling", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			DailyAiRequests: 14,
			LastQuotaReset:  now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, domain.QuotaSourceFreeTier, decision.Source)
		assert.Equal(t, 14, decision.Used)
		assert.Equal(t, 15, decision.Limit)
	})

	t.Run("free tier denies at ceiling", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			DailyAiRequests: 15,
			LastQuotaReset:  now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Contains(t, decision.Message, "15")
	})

	t.Run("expired subscription falls through to free tier", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			ParentAccountID:    uuid.NullUUID{UUID: uuid.New(), Valid: true},
			SubscriptionStatus: nullStr("expired"),
			DailyAiRequests:    15,
			LastQuotaReset:     now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, domain.QuotaSourceFreeTier, decision.Source)
	})

	t.Run("counters are tracked per feature", func(t *testing.T) {
		store := newFakeQuotaStore()
		id := store.addStudent(repository.GetStudentBillingRow{
			DailyAiRequests:  15, // chat saturated
			DailyHomeworkGen: 0,
			LastQuotaReset:   now,
		})
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		chat, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
		require.NoError(t, err)
		assert.False(t, chat.Allowed)

		homework, err := svc.CheckAndReserve(ctx, id, domain.FeatureHomework)
		require.NoError(t, err)
		assert.True(t, homework.Allowed)
	})

	t.Run("unknown student is not found", func(t *testing.T) {
		store := newFakeQuotaStore()
		svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

		_, err := svc.CheckAndReserve(ctx, uuid.New(), domain.FeatureChat)
		require.Error(t, err)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})
}

// TestQuotaDailyReset exercises the lazy reset: a saturated counter from
// yesterday unlocks on the first check of the new day, in a single call.
func TestQuotaDailyReset(t *testing.T) {
	ctx := context.Background()
	yesterday := time.Date(2025, 3, 9, 23, 50, 0, 0, time.UTC)
	today := time.Date(2025, 3, 10, 0, 10, 0, 0, time.UTC)

	store := newFakeQuotaStore()
	id := store.addStudent(repository.GetStudentBillingRow{
		DailyAiRequests: 15,
		LastQuotaReset:  yesterday,
	})
	svc := NewQuotaService(store, testQuotaConfig(today), testLogger())

	decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 0, decision.Used)
	assert.Equal(t, 1, store.resets)

	// A second check on the same day must not reset again.
	_, err = svc.CheckAndReserve(ctx, id, domain.FeatureChat)
	require.NoError(t, err)
	assert.Equal(t, 1, store.resets)
}

// Counters belong to calendar days in the configured zone, not to 24h
// windows. 23:50 and 00:10 UTC are the same calendar day in a UTC-5 zone.
func TestQuotaDailyReset_TimeZone(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	lastReset := time.Date(2025, 3, 9, 23, 50, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 0, 10, 0, 0, time.UTC)

	store := newFakeQuotaStore()
	id := store.addStudent(repository.GetStudentBillingRow{
		DailyAiRequests: 15,
		LastQuotaReset:  lastReset,
	})
	cfg := testQuotaConfig(now)
	cfg.Location = loc
	svc := NewQuotaService(store, cfg, testLogger())

	decision, err := svc.CheckAndReserve(ctx, id, domain.FeatureChat)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, store.resets)
}

func TestQuotaCommitUsage(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	store := newFakeQuotaStore()
	id := store.addStudent(repository.GetStudentBillingRow{LastQuotaReset: now})
	svc := NewQuotaService(store, testQuotaConfig(now), testLogger())

	require.NoError(t, svc.CommitUsage(ctx, id, domain.FeatureChat))
	require.NoError(t, svc.CommitUsage(ctx, id, domain.FeatureChat))
	require.NoError(t, svc.CommitUsage(ctx, id, domain.FeatureHomework))

	usage, err := svc.Usage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.DailyAIRequests)
	assert.Equal(t, 1, usage.DailyHomeworkGen)
}
