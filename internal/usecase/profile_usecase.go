package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"career-coach-backend/internal/domain"
	"career-coach-backend/pkg/apperror"
	"career-coach-backend/pkg/audit"
	"career-coach-backend/pkg/logger"
	"career-coach-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// publishTimeout bounds the post-commit event publish. The request's own
// context may already be done by then.
const publishTimeout = 3 * time.Second

type profileUsecase struct {
	repo      domain.ProfileRepository
	resolver  domain.SessionResolver
	validate  *validator.Validate
	publisher domain.InsightEventPublisher
	audit     *audit.Logger
	txTimeout time.Duration
	now       func() time.Time
}

type ProfileOption func(*profileUsecase)

// WithTxTimeout overrides the bound on the update transaction
func WithTxTimeout(d time.Duration) ProfileOption {
	return func(u *profileUsecase) {
		if d > 0 {
			u.txTimeout = d
		}
	}
}

func WithInsightPublisher(p domain.InsightEventPublisher) ProfileOption {
	return func(u *profileUsecase) {
		u.publisher = p
	}
}

func WithAuditLogger(l *audit.Logger) ProfileOption {
	return func(u *profileUsecase) {
		u.audit = l
	}
}

func WithClock(now func() time.Time) ProfileOption {
	return func(u *profileUsecase) {
		u.now = now
	}
}

func NewProfileUsecase(repo domain.ProfileRepository, resolver domain.SessionResolver, validate *validator.Validate, opts ...ProfileOption) domain.ProfileUsecase {
	if validate == nil {
		validate = validation.New()
	}
	u := &profileUsecase{
		repo:      repo,
		resolver:  resolver,
		validate:  validate,
		audit:     audit.Default(),
		txTimeout: domain.DefaultProfileTxTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ============================================================================
// Profile Read
// ============================================================================

func (u *profileUsecase) GetProfile(ctx context.Context) (*domain.Profile, error) {
	callerID, err := u.resolver.ResolveCaller(ctx)
	if err != nil {
		return nil, unauthenticated()
	}

	profile, err := u.repo.GetByClerkUserID(ctx, callerID)
	if err != nil {
		cause := domain.CauseOf(err)
		logger.Log.Error("profile read failed", "cause", cause, "error", err)
		return nil, apperror.New(statusForCause(cause), "Failed to load profile",
			&domain.ProfileReadError{Cause: cause, Err: err})
	}
	if profile == nil {
		return nil, profileNotFound()
	}
	return profile, nil
}

// ============================================================================
// Onboarding Status
// ============================================================================

func (u *profileUsecase) GetOnboardingStatus(ctx context.Context) (*domain.OnboardingStatus, error) {
	callerID, err := u.resolver.ResolveCaller(ctx)
	if err != nil {
		return nil, unauthenticated()
	}

	profile, err := u.repo.GetByClerkUserID(ctx, callerID)
	if err != nil {
		cause := domain.CauseOf(err)
		logger.Log.Error("onboarding status check failed", "cause", cause, "error", err)
		return nil, apperror.New(statusForCause(cause), "Failed to check onboarding status",
			&domain.StatusCheckError{Cause: cause, Err: err})
	}
	if profile == nil {
		return nil, profileNotFound()
	}

	return &domain.OnboardingStatus{IsOnboarded: profile.IsOnboarded()}, nil
}

// ============================================================================
// Profile Update
// ============================================================================

// UpdateProfile stores the caller's industry, experience, bio and skills.
// The industry's insight row is created with defaults when missing; both
// writes share one transaction bounded by the configured timeout.
func (u *profileUsecase) UpdateProfile(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	callerID, err := u.resolver.ResolveCaller(ctx)
	if err != nil {
		return nil, unauthenticated()
	}

	profile, err := u.repo.GetByClerkUserID(ctx, callerID)
	if err != nil {
		return nil, u.updateFailed(ctx, callerID, err)
	}
	if profile == nil {
		return nil, profileNotFound()
	}

	if req == nil {
		req = &domain.UpdateProfileRequest{}
	}
	in := *req
	in.Normalize()
	if err := u.validate.Struct(&in); err != nil {
		messages := validation.FormatValidationErrors(err)
		return nil, apperror.New(http.StatusBadRequest, strings.Join(messages, "; "),
			fmt.Errorf("%w: %v", domain.ErrInvalidProfileUpdate, err))
	}

	var (
		updated *domain.Profile
		created *domain.IndustryInsight
	)
	err = u.repo.WithinTx(ctx, u.txTimeout, func(ctx context.Context, tx domain.ProfileTx) error {
		created = nil

		insight, err := tx.FindIndustryInsight(ctx, in.Industry)
		if err != nil {
			return err
		}
		if insight == nil {
			fresh := domain.NewDefaultIndustryInsight(in.Industry, u.now())
			ok, err := tx.CreateIndustryInsight(ctx, fresh)
			if err != nil {
				return err
			}
			if ok {
				created = fresh
			} else {
				// Another transaction committed the same industry first
				insight, err = tx.FindIndustryInsight(ctx, in.Industry)
				if err != nil {
					return err
				}
				if insight == nil {
					return fmt.Errorf("industry insight %q missing after insert conflict", in.Industry)
				}
			}
		}

		updated, err = tx.UpdateProfile(ctx, profile.ID, &in)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, profileNotFound()
		}
		return nil, u.updateFailed(ctx, callerID, err)
	}

	u.audit.Log(audit.Event{
		Type:      audit.EventProfileUpdated,
		SubjectID: callerID,
		RequestID: requestID(ctx),
		Details: map[string]string{
			"industry":        in.Industry,
			"insight_created": strconv.FormatBool(created != nil),
		},
	})
	if created != nil {
		u.insightCreated(ctx, created)
	}

	return updated, nil
}

func (u *profileUsecase) updateFailed(ctx context.Context, callerID string, err error) error {
	cause := domain.CauseOf(err)
	if errors.Is(err, context.Canceled) {
		logger.Log.Warn("profile update abandoned by caller", "error", err)
	} else {
		logger.Log.Error("profile update failed", "cause", cause, "error", err)
	}
	u.audit.Log(audit.Event{
		Type:      audit.EventProfileUpdateFailed,
		SubjectID: callerID,
		RequestID: requestID(ctx),
		Details:   map[string]string{"cause": string(cause)},
	})

	return apperror.New(statusForCause(cause), updateFailureMessage(cause),
		&domain.ProfileUpdateError{Cause: cause, Err: err})
}

func (u *profileUsecase) insightCreated(ctx context.Context, insight *domain.IndustryInsight) {
	u.audit.Log(audit.Event{
		Type:      audit.EventInsightCreated,
		RequestID: requestID(ctx),
		Details:   map[string]string{"industry": insight.Industry, "insight_id": insight.ID},
	})

	if u.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := u.publisher.PublishInsightCreated(pubCtx, insight); err != nil {
		// The row is committed; enrichment can be replayed from the table
		logger.Log.Warn("publish industry insight event failed", "industry", insight.Industry, "error", err)
	}
}

func statusForCause(cause domain.FailureCause) int {
	switch cause {
	case domain.CauseTimeout:
		return http.StatusGatewayTimeout
	case domain.CauseConstraint:
		return http.StatusConflict
	case domain.CauseConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func updateFailureMessage(cause domain.FailureCause) string {
	switch cause {
	case domain.CauseTimeout:
		return "Profile update timed out, please try again"
	case domain.CauseConstraint:
		return "Profile update conflicts with existing data"
	case domain.CauseConnectivity:
		return "Profile store is unavailable, please try again later"
	default:
		return "Failed to update profile"
	}
}

func unauthenticated() error {
	return apperror.New(http.StatusUnauthorized, "User not authenticated", domain.ErrUnauthenticated)
}

func profileNotFound() error {
	return apperror.New(http.StatusNotFound, "User not found", domain.ErrProfileNotFound)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(domain.KeyRequestID).(string)
	return id
}
