package domain

import (
	"context"
	"strings"
	"time"
)

// DefaultProfileTxTimeout bounds the insight-then-profile transaction. Two
// dependent writes run back to back, so it sits above the store's usual 5s.
const DefaultProfileTxTimeout = 10 * time.Second

// Profile is the career profile of one Clerk user. Rows are created at signup
// elsewhere; this service only updates them.
type Profile struct {
	ID          string    `json:"id"`
	ClerkUserID string    `json:"clerk_user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	Experience  int       `json:"experience"`
	Bio         string    `json:"bio,omitempty"`
	Skills      []string  `json:"skills"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOnboarded is true once an industry has been chosen
func (p *Profile) IsOnboarded() bool {
	return strings.TrimSpace(p.Industry) != ""
}

// UpdateProfileRequest is the payload of the onboarding / edit-profile form.
// A nil Bio or Skills leaves the stored value as it is; an empty one clears it.
type UpdateProfileRequest struct {
	Industry   string   `json:"industry" validate:"required,max=100,industry_name"`
	Experience int      `json:"experience" validate:"min=0,max=80"`
	Bio        *string  `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Skills     []string `json:"skills,omitempty" validate:"max=50,dive,required,max=50,no_emoji"`
}

// Normalize trims whitespace, drops blank skills and removes case-insensitive
// duplicates, keeping the first spelling seen. Omitted fields stay nil.
func (r *UpdateProfileRequest) Normalize() {
	r.Industry = strings.TrimSpace(r.Industry)
	if r.Bio != nil {
		bio := strings.TrimSpace(*r.Bio)
		r.Bio = &bio
	}
	if r.Skills == nil {
		return
	}

	skills := make([]string, 0, len(r.Skills))
	seen := make(map[string]struct{}, len(r.Skills))
	for _, s := range r.Skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, s)
	}
	r.Skills = skills
}

// OnboardingStatus is the response of the onboarding status query
type OnboardingStatus struct {
	IsOnboarded bool `json:"isOnboarding"`
}

// ============================================================================
// Session
// ============================================================================

// SessionResolver maps a request context to the caller's Clerk user id.
// It returns ErrUnauthenticated when no identity is attached.
type SessionResolver interface {
	ResolveCaller(ctx context.Context) (string, error)
}

// ============================================================================
// Repository Interface
// ============================================================================

type ProfileRepository interface {
	// GetByClerkUserID returns nil, nil when the user has no profile row
	GetByClerkUserID(ctx context.Context, clerkUserID string) (*Profile, error)

	// WithinTx runs fn in one transaction bounded by timeout. fn's ctx carries
	// the deadline. Any error from fn, or an expired deadline, rolls back.
	WithinTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx ProfileTx) error) error
}

// ProfileTx is the set of statements the update workflow runs atomically
type ProfileTx interface {
	// FindIndustryInsight returns nil, nil when no insight exists for industry
	FindIndustryInsight(ctx context.Context, industry string) (*IndustryInsight, error)

	// CreateIndustryInsight inserts insight unless a row for the same industry
	// already exists. created is false when another transaction got there first.
	CreateIndustryInsight(ctx context.Context, insight *IndustryInsight) (created bool, err error)

	// UpdateProfile applies req to the profile row and returns the stored row.
	// Returns ErrProfileNotFound when the row is gone.
	UpdateProfile(ctx context.Context, profileID string, req *UpdateProfileRequest) (*Profile, error)
}

// ============================================================================
// Usecase Interface
// ============================================================================

type ProfileUsecase interface {
	GetProfile(ctx context.Context) (*Profile, error)
	UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*Profile, error)
	GetOnboardingStatus(ctx context.Context) (*OnboardingStatus, error)
}
