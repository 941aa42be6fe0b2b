package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"career-coach-backend/internal/domain"
	"career-coach-backend/internal/usecase"
	"career-coach-backend/pkg/apperror"
	"career-coach-backend/pkg/audit"
	"career-coach-backend/pkg/auth"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishInsightCreated(ctx context.Context, insight *domain.IndustryInsight) error {
	return m.Called(ctx, insight).Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newProfile(id, clerkID string) *domain.Profile {
	return &domain.Profile{
		ID:          id,
		ClerkUserID: clerkID,
		Email:       clerkID + "@example.com",
		Skills:      []string{},
		CreatedAt:   fixedNow.Add(-24 * time.Hour),
		UpdatedAt:   fixedNow.Add(-24 * time.Hour),
	}
}

func newUsecase(store *fakeStore, opts ...usecase.ProfileOption) domain.ProfileUsecase {
	opts = append([]usecase.ProfileOption{usecase.WithClock(func() time.Time { return fixedNow })}, opts...)
	return usecase.NewProfileUsecase(store, auth.NewContextResolver(), nil, opts...)
}

func strPtr(s string) *string { return &s }

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestUpdateProfile_RoundTrip(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	updated, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{
		Industry:   "Software Engineering",
		Experience: 3,
		Bio:        strPtr("backend dev"),
		Skills:     []string{"Go", "SQL"},
	})
	require.NoError(t, err)

	got, err := uc.GetProfile(ctx)
	require.NoError(t, err)

	want := newProfile("p1", "user_1")
	want.Industry = "Software Engineering"
	want.Experience = 3
	want.Bio = "backend dev"
	want.Skills = []string{"Go", "SQL"}

	ignoreUpdatedAt := cmpopts.IgnoreFields(domain.Profile{}, "UpdatedAt")
	if diff := cmp.Diff(want, got, ignoreUpdatedAt); diff != "" {
		t.Errorf("stored profile mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(updated, got); diff != "" {
		t.Errorf("returned profile differs from stored (-returned +stored):\n%s", diff)
	}
	assert.True(t, got.UpdatedAt.After(want.CreatedAt))
}

func TestUpdateProfile_OmittedFieldsKeepStoredValues(t *testing.T) {
	seeded := newProfile("p1", "user_1")
	seeded.Industry = "Law"
	seeded.Bio = "litigator"
	seeded.Skills = []string{"Negotiation"}
	store := newFakeStore(seeded)
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	updated, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Finance", Experience: 7})
	require.NoError(t, err)

	assert.Equal(t, "Finance", updated.Industry)
	assert.Equal(t, 7, updated.Experience)
	assert.Equal(t, "litigator", updated.Bio)
	assert.Equal(t, []string{"Negotiation"}, updated.Skills)

	stored := store.profile("p1")
	assert.Equal(t, "litigator", stored.Bio)
	assert.Equal(t, []string{"Negotiation"}, stored.Skills)
}

func TestUpdateProfile_EmptyFieldsClearStoredValues(t *testing.T) {
	seeded := newProfile("p1", "user_1")
	seeded.Industry = "Law"
	seeded.Bio = "litigator"
	seeded.Skills = []string{"Negotiation"}
	store := newFakeStore(seeded)
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	updated, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{
		Industry: "Law",
		Bio:      strPtr("  "),
		Skills:   []string{},
	})
	require.NoError(t, err)

	assert.Empty(t, updated.Bio)
	assert.Empty(t, updated.Skills)
}

func TestUpdateProfile_CreatesDefaultInsight(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	pub := new(mockPublisher)
	pub.On("PublishInsightCreated", mock.Anything, mock.MatchedBy(func(in *domain.IndustryInsight) bool {
		return in.Industry == "Marine Biology"
	})).Return(nil).Once()

	uc := newUsecase(store, usecase.WithInsightPublisher(pub))
	ctx := auth.WithCaller(context.Background(), "user_1")

	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Marine Biology", Experience: 1})
	require.NoError(t, err)

	in := store.insight("Marine Biology")
	require.NotNil(t, in)
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, domain.DemandMedium, in.DemandLevel)
	assert.Equal(t, domain.OutlookNeutral, in.MarketOutlook)
	assert.Zero(t, in.GrowthRate)
	assert.Empty(t, in.SalaryRanges)
	assert.Empty(t, in.TopSkills)
	assert.Empty(t, in.KeyTrends)
	assert.Empty(t, in.RecommendedSkills)
	assert.Equal(t, fixedNow, in.LastUpdated)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), in.NextUpdate)

	pub.AssertExpectations(t)
}

func TestUpdateProfile_ExistingInsightUntouched(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	pub := new(mockPublisher)
	pub.On("PublishInsightCreated", mock.Anything, mock.Anything).Return(nil).Once()
	uc := newUsecase(store, usecase.WithInsightPublisher(pub))
	ctx := auth.WithCaller(context.Background(), "user_1")

	req := &domain.UpdateProfileRequest{Industry: "Marine Biology", Experience: 1}
	_, err := uc.UpdateProfile(ctx, req)
	require.NoError(t, err)
	first := *store.insight("Marine Biology")

	// Idempotent: repeating the same call changes nothing about the insight
	_, err = uc.UpdateProfile(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.insightCount())
	assert.Equal(t, 1, store.insightWrites)
	assert.Equal(t, 2, store.profileWrites)
	if diff := cmp.Diff(first, *store.insight("Marine Biology")); diff != "" {
		t.Errorf("insight changed on second update:\n%s", diff)
	}
	pub.AssertNumberOfCalls(t, "PublishInsightCreated", 1)
}

func TestUpdateProfile_NormalizesSkills(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	req := &domain.UpdateProfileRequest{
		Industry: "  Data Science ",
		Skills:   []string{"Python", " python ", "", "SQL"},
	}
	p, err := uc.UpdateProfile(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "Data Science", p.Industry)
	assert.Equal(t, []string{"Python", "SQL"}, p.Skills)
	assert.NotNil(t, store.insight("Data Science"))
	// The caller's request is left as it was
	assert.Equal(t, "  Data Science ", req.Industry)
}

func TestUpdateProfile_Unauthenticated(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store)

	_, err := uc.UpdateProfile(context.Background(), &domain.UpdateProfileRequest{Industry: "Law"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Zero(t, store.txCount)
}

func TestUpdateProfile_ProfileNotFoundWritesNothing(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_ghost")

	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Law"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	assert.Zero(t, store.txCount)
	assert.Zero(t, store.insightCount())
	assert.Zero(t, store.profileWrites)
}

func TestUpdateProfile_ProfileDeletedMidway(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	store.updateErr = domain.ErrProfileNotFound
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Law"})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Zero(t, store.insightCount(), "insight must roll back with the profile")
}

func TestUpdateProfile_InvalidPayload(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	cases := map[string]*domain.UpdateProfileRequest{
		"blank industry":      {Industry: "   "},
		"negative experience": {Industry: "Law", Experience: -1},
		"emoji skill":         {Industry: "Law", Skills: []string{"Go 🚀"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.UpdateProfile(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidProfileUpdate)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
	assert.Zero(t, store.txCount)
}

func TestUpdateProfile_TimeoutRollsBack(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	store.updateDelay = time.Second
	pub := new(mockPublisher)
	uc := newUsecase(store, usecase.WithTxTimeout(20*time.Millisecond), usecase.WithInsightPublisher(pub))
	ctx := auth.WithCaller(context.Background(), "user_1")

	start := time.Now()
	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Astronomy", Experience: 2})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	var updateErr *domain.ProfileUpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Equal(t, domain.CauseTimeout, updateErr.Cause)
	assert.Equal(t, http.StatusGatewayTimeout, statusOf(t, err))

	// Neither write is visible
	assert.Nil(t, store.insight("Astronomy"))
	assert.Empty(t, store.profile("p1").Industry)
	assert.Zero(t, store.commits)
	pub.AssertNotCalled(t, "PublishInsightCreated", mock.Anything, mock.Anything)
}

func TestUpdateProfile_StoreFailureCauses(t *testing.T) {
	cases := []struct {
		cause  domain.FailureCause
		status int
	}{
		{domain.CauseConstraint, http.StatusConflict},
		{domain.CauseConnectivity, http.StatusServiceUnavailable},
		{domain.CauseUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.cause), func(t *testing.T) {
			store := newFakeStore(newProfile("p1", "user_1"))
			store.updateErr = &domain.StoreError{Op: "update profile", Cause: tc.cause, Err: errors.New("driver said no")}
			uc := newUsecase(store)
			ctx := auth.WithCaller(context.Background(), "user_1")

			_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Law"})

			var updateErr *domain.ProfileUpdateError
			require.ErrorAs(t, err, &updateErr)
			assert.Equal(t, tc.cause, updateErr.Cause)
			assert.Equal(t, tc.status, statusOf(t, err))
			assert.NotContains(t, err.Error(), "driver said no")
			assert.Zero(t, store.insightCount())
		})
	}
}

func TestUpdateProfile_LoadFailure(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	store.getErr = &domain.StoreError{Op: "get profile", Cause: domain.CauseConnectivity, Err: errors.New("dial tcp: refused")}
	uc := newUsecase(store)
	ctx := auth.WithCaller(context.Background(), "user_1")

	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Law"})

	var updateErr *domain.ProfileUpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Equal(t, domain.CauseConnectivity, updateErr.Cause)
	assert.Zero(t, store.txCount)
}

func TestUpdateProfile_PublishFailureIgnored(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	pub := new(mockPublisher)
	pub.On("PublishInsightCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	uc := newUsecase(store, usecase.WithInsightPublisher(pub))
	ctx := auth.WithCaller(context.Background(), "user_1")

	p, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Robotics"})
	require.NoError(t, err)
	assert.Equal(t, "Robotics", p.Industry)
	pub.AssertExpectations(t)
}

func TestUpdateProfile_LostInsertRace(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	winner := domain.NewDefaultIndustryInsight("Game Design", fixedNow.Add(-time.Minute))
	// A competing transaction commits between our lookup and our insert
	store.beforeCreate = func(industry string) {
		store.seedInsight(winner)
	}
	pub := new(mockPublisher)
	uc := newUsecase(store, usecase.WithInsightPublisher(pub))
	ctx := auth.WithCaller(context.Background(), "user_1")

	p, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Game Design"})
	require.NoError(t, err)
	assert.Equal(t, "Game Design", p.Industry)
	assert.Same(t, winner, store.insight("Game Design"))
	assert.Zero(t, store.insightWrites)
	pub.AssertNotCalled(t, "PublishInsightCreated", mock.Anything, mock.Anything)
}

func TestUpdateProfile_ConcurrentSameNewIndustry(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"), newProfile("p2", "user_2"))

	// Hold both callers at the insert so neither has committed yet
	var arrived sync.WaitGroup
	arrived.Add(2)
	store.beforeCreate = func(string) {
		arrived.Done()
		arrived.Wait()
	}

	pub := new(mockPublisher)
	pub.On("PublishInsightCreated", mock.Anything, mock.Anything).Return(nil)
	uc := newUsecase(store, usecase.WithInsightPublisher(pub))

	g, gctx := errgroup.WithContext(context.Background())
	for _, caller := range []string{"user_1", "user_2"} {
		ctx := auth.WithCaller(gctx, caller)
		g.Go(func() error {
			_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Quantum Farming", Experience: 4})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, store.insightCount())
	assert.Equal(t, 1, store.insightWrites)
	assert.Equal(t, "Quantum Farming", store.profile("p1").Industry)
	assert.Equal(t, "Quantum Farming", store.profile("p2").Industry)
	pub.AssertNumberOfCalls(t, "PublishInsightCreated", 1)
}

func TestUpdateProfile_ConcurrentDifferentIndustries(t *testing.T) {
	industries := []string{"Finance", "Healthcare", "Education", "Retail", "Energy"}
	profiles := make([]*domain.Profile, len(industries))
	for i := range industries {
		profiles[i] = newProfile("p"+industries[i], "user_"+industries[i])
	}
	store := newFakeStore(profiles...)
	uc := newUsecase(store)

	var g errgroup.Group
	for _, industry := range industries {
		industry := industry
		ctx := auth.WithCaller(context.Background(), "user_"+industry)
		g.Go(func() error {
			_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: industry})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, len(industries), store.insightCount())
	for _, industry := range industries {
		assert.NotNil(t, store.insight(industry), industry)
		assert.Equal(t, industry, store.profile("p"+industry).Industry)
	}
}

func TestUpdateProfile_AuditTrail(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	auditLog := audit.NewWithZap(zap.New(core), "career-coach-backend", "test")

	store := newFakeStore(newProfile("p1", "user_1"))
	uc := newUsecase(store, usecase.WithAuditLogger(auditLog))
	ctx := auth.WithCaller(context.Background(), "user_1")
	ctx = context.WithValue(ctx, domain.KeyRequestID, "req-42")

	_, err := uc.UpdateProfile(ctx, &domain.UpdateProfileRequest{Industry: "Architecture"})
	require.NoError(t, err)

	updated := logs.FilterMessage(string(audit.EventProfileUpdated)).All()
	require.Len(t, updated, 1)
	fields := updated[0].ContextMap()
	assert.Equal(t, audit.HashSubject("user_1"), fields["subject"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "true", fields["insight_created"])
	assert.Len(t, logs.FilterMessage(string(audit.EventInsightCreated)).All(), 1)
}

func TestGetOnboardingStatus(t *testing.T) {
	onboarded := newProfile("p1", "user_1")
	onboarded.Industry = "Law"
	store := newFakeStore(onboarded, newProfile("p2", "user_2"))
	uc := newUsecase(store)

	t.Run("onboarded", func(t *testing.T) {
		status, err := uc.GetOnboardingStatus(auth.WithCaller(context.Background(), "user_1"))
		require.NoError(t, err)
		assert.True(t, status.IsOnboarded)
	})

	t.Run("no industry yet", func(t *testing.T) {
		status, err := uc.GetOnboardingStatus(auth.WithCaller(context.Background(), "user_2"))
		require.NoError(t, err)
		assert.False(t, status.IsOnboarded)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := uc.GetOnboardingStatus(context.Background())
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("unknown caller", func(t *testing.T) {
		_, err := uc.GetOnboardingStatus(auth.WithCaller(context.Background(), "user_ghost"))
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	assert.Zero(t, store.txCount)
}

func TestGetOnboardingStatus_StoreFailure(t *testing.T) {
	store := newFakeStore(newProfile("p1", "user_1"))
	store.getErr = &domain.StoreError{Op: "get profile", Cause: domain.CauseTimeout, Err: context.DeadlineExceeded}
	uc := newUsecase(store)

	_, err := uc.GetOnboardingStatus(auth.WithCaller(context.Background(), "user_1"))

	var statusErr *domain.StatusCheckError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, domain.CauseTimeout, statusErr.Cause)
	assert.Equal(t, http.StatusGatewayTimeout, statusOf(t, err))
}

func TestGetProfile_StoreFailure(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		cause  domain.FailureCause
		status int
	}{
		{"timeout", &domain.StoreError{Op: "get profile", Cause: domain.CauseTimeout, Err: context.DeadlineExceeded},
			domain.CauseTimeout, http.StatusGatewayTimeout},
		{"connectivity", &domain.StoreError{Op: "get profile", Cause: domain.CauseConnectivity, Err: errors.New("dial tcp: refused")},
			domain.CauseConnectivity, http.StatusServiceUnavailable},
		{"caller gone", context.Canceled, domain.CauseConnectivity, http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), domain.CauseUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(newProfile("p1", "user_1"))
			store.getErr = tc.err
			uc := newUsecase(store)

			_, err := uc.GetProfile(auth.WithCaller(context.Background(), "user_1"))

			var readErr *domain.ProfileReadError
			require.ErrorAs(t, err, &readErr)
			assert.Equal(t, tc.cause, readErr.Cause)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.status, statusOf(t, err))
		})
	}
}
