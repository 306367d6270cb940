package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testLimits = FreeTierLimits{ChatPerDay: 15, HomeworkPerDay: 5}

func TestDecideQuotaPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		billing     StudentBilling
		kind        FeatureKind
		wantAllowed bool
		wantSource  QuotaSource
	}{
		{
			name: "school pays wins even with saturated counters",
			billing: StudentBilling{
				OrgBillingModel: BillingModelSchoolPays,
				ParentStatus:    SubscriptionStatusExpired,
				DailyAIRequests: 999,
			},
			kind:        FeatureChat,
			wantAllowed: true,
			wantSource:  QuotaSourceSchool,
		},
		{
			name: "parent pays org falls through to subscription",
			billing: StudentBilling{
				OrgBillingModel: BillingModelParentPays,
				ParentStatus:    SubscriptionStatusActive,
				DailyAIRequests: 999,
			},
			kind:        FeatureChat,
			wantAllowed: true,
			wantSource:  QuotaSourceSubscription,
		},
		{
			name: "trial subscription is unlimited",
			billing: StudentBilling{
				ParentStatus:     SubscriptionStatusTrial,
				DailyHomeworkGen: 999,
			},
			kind:        FeatureHomework,
			wantAllowed: true,
			wantSource:  QuotaSourceSubscription,
		},
		{
			name: "free tier under ceiling",
			billing: StudentBilling{
				ParentStatus:    SubscriptionStatusNone,
				DailyAIRequests: 14,
			},
			kind:        FeatureChat,
			wantAllowed: true,
			wantSource:  QuotaSourceFreeTier,
		},
		{
			name: "free tier at ceiling is denied",
			billing: StudentBilling{
				ParentStatus:    SubscriptionStatusExpired,
				DailyAIRequests: 15,
			},
			kind:        FeatureChat,
			wantAllowed: false,
			wantSource:  QuotaSourceFreeTier,
		},
		{
			name: "counters are per feature kind",
			billing: StudentBilling{
				ParentStatus:     SubscriptionStatusNone,
				DailyAIRequests:  15, // chat saturated
				DailyHomeworkGen: 0,
			},
			kind:        FeatureHomework,
			wantAllowed: true,
			wantSource:  QuotaSourceFreeTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideQuota(tt.billing, tt.kind, testLimits)
			assert.Equal(t, tt.wantAllowed, got.Allowed)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestDecideQuotaDenialMessageNamesLimit(t *testing.T) {
	billing := StudentBilling{
		StudentID:       uuid.New(),
		ParentStatus:    SubscriptionStatusExpired,
		DailyAIRequests: 15,
	}
	got := DecideQuota(billing, FeatureChat, testLimits)
	assert.False(t, got.Allowed)
	assert.Equal(t, 15, got.Limit)
	assert.Contains(t, got.Message, "15")
	assert.Contains(t, got.Message, "AI chat")
}

func TestNeedsDailyReset(t *testing.T) {
	utc := time.UTC
	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	tests := []struct {
		name  string
		last  time.Time
		now   time.Time
		loc   *time.Location
		want  bool
	}{
		{
			name: "same day",
			last: time.Date(2025, 3, 10, 8, 0, 0, 0, utc),
			now:  time.Date(2025, 3, 10, 23, 59, 0, 0, utc),
			loc:  utc,
			want: false,
		},
		{
			name: "next day",
			last: time.Date(2025, 3, 10, 23, 59, 0, 0, utc),
			now:  time.Date(2025, 3, 11, 0, 1, 0, 0, utc),
			loc:  utc,
			want: true,
		},
		{
			name: "month boundary",
			last: time.Date(2025, 3, 31, 12, 0, 0, 0, utc),
			now:  time.Date(2025, 4, 1, 0, 0, 1, 0, utc),
			loc:  utc,
			want: true,
		},
		{
			name: "reference timezone decides the day",
			// 03:00 UTC and 23:00 UTC the previous day are the same
			// calendar day in New York.
			last: time.Date(2025, 3, 10, 23, 0, 0, 0, utc),
			now:  time.Date(2025, 3, 11, 3, 0, 0, 0, utc),
			loc:  ny,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsDailyReset(tt.last, tt.now, tt.loc))
		})
	}
}
