package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsightRefreshInterval is how far ahead a new insight schedules its first
// enrichment run.
const InsightRefreshInterval = 7 * 24 * time.Hour

type DemandLevel string

const (
	DemandLow    DemandLevel = "LOW"
	DemandMedium DemandLevel = "MEDIUM"
	DemandHigh   DemandLevel = "HIGH"
)

// IsValid checks if the demand level is one of the known values
func (d DemandLevel) IsValid() bool {
	switch d {
	case DemandLow, DemandMedium, DemandHigh:
		return true
	}
	return false
}

type MarketOutlook string

const (
	OutlookNegative MarketOutlook = "NEGATIVE"
	OutlookNeutral  MarketOutlook = "NEUTRAL"
	OutlookPositive MarketOutlook = "POSITIVE"
)

// IsValid checks if the outlook is one of the known values
func (o MarketOutlook) IsValid() bool {
	switch o {
	case OutlookNegative, OutlookNeutral, OutlookPositive:
		return true
	}
	return false
}

type SalaryRange struct {
	Role     string  `json:"role"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Location string  `json:"location"`
}

// IndustryInsight is the shared market aggregate for one industry. It is
// created here with placeholder values and filled in by the enrichment job.
type IndustryInsight struct {
	ID                string        `json:"id"`
	Industry          string        `json:"industry"`
	SalaryRanges      []SalaryRange `json:"salary_ranges"`
	GrowthRate        float64       `json:"growth_rate"`
	DemandLevel       DemandLevel   `json:"demand_level"`
	TopSkills         []string      `json:"top_skills"`
	MarketOutlook     MarketOutlook `json:"market_outlook"`
	KeyTrends         []string      `json:"key_trends"`
	RecommendedSkills []string      `json:"recommended_skills"`
	LastUpdated       time.Time     `json:"last_updated"`
	NextUpdate        time.Time     `json:"next_update"`
}

// NewDefaultIndustryInsight builds the placeholder row for an industry nobody
// has picked before.
func NewDefaultIndustryInsight(industry string, now time.Time) *IndustryInsight {
	now = now.UTC()
	return &IndustryInsight{
		ID:                uuid.NewString(),
		Industry:          industry,
		SalaryRanges:      []SalaryRange{},
		GrowthRate:        0,
		DemandLevel:       DemandMedium,
		TopSkills:         []string{},
		MarketOutlook:     OutlookNeutral,
		KeyTrends:         []string{},
		RecommendedSkills: []string{},
		LastUpdated:       now,
		NextUpdate:        now.Add(InsightRefreshInterval),
	}
}

// InsightEventPublisher announces newly created insights to the enrichment
// pipeline. Called only after the creating transaction has committed.
type InsightEventPublisher interface {
	PublishInsightCreated(ctx context.Context, insight *IndustryInsight) error
}
