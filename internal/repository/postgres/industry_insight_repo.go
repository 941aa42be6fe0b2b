package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"career-coach-backend/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

var psqlInsight = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var insightColumns = []string{
	"id", "industry", "salary_ranges", "growth_rate", "demand_level", "top_skills",
	"market_outlook", "key_trends", "recommended_skills", "last_updated", "next_update",
}

func scanInsight(row pgx.Row) (*domain.IndustryInsight, error) {
	var in domain.IndustryInsight
	var salaryJSON []byte
	var demand, outlook string
	var topSkills, keyTrends, recommended []string

	err := row.Scan(
		&in.ID, &in.Industry, &salaryJSON, &in.GrowthRate, &demand, pq.Array(&topSkills),
		&outlook, pq.Array(&keyTrends), pq.Array(&recommended), &in.LastUpdated, &in.NextUpdate,
	)
	if err != nil {
		return nil, err
	}

	in.SalaryRanges = []domain.SalaryRange{}
	if len(salaryJSON) > 0 {
		if err := json.Unmarshal(salaryJSON, &in.SalaryRanges); err != nil {
			return nil, fmt.Errorf("decode salary_ranges: %w", err)
		}
	}
	in.DemandLevel = domain.DemandLevel(demand)
	in.MarketOutlook = domain.MarketOutlook(outlook)
	in.TopSkills = nonNil(topSkills)
	in.KeyTrends = nonNil(keyTrends)
	in.RecommendedSkills = nonNil(recommended)
	return &in, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func findInsightQuery(industry string) sq.SelectBuilder {
	return psqlInsight.
		Select(insightColumns...).
		From("industry_insights").
		Where(sq.Eq{"industry": industry})
}

// createInsightQuery inserts in unless its industry already has a row, in
// which case the statement returns no rows
func createInsightQuery(in *domain.IndustryInsight) (sq.InsertBuilder, error) {
	salaryJSON, err := json.Marshal(in.SalaryRanges)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode salary_ranges: %w", err)
	}

	return psqlInsight.
		Insert("industry_insights").
		Columns(insightColumns...).
		Values(
			in.ID, in.Industry, string(salaryJSON), in.GrowthRate, string(in.DemandLevel), pq.Array(in.TopSkills),
			string(in.MarketOutlook), pq.Array(in.KeyTrends), pq.Array(in.RecommendedSkills), in.LastUpdated, in.NextUpdate,
		).
		Suffix("ON CONFLICT (industry) DO NOTHING RETURNING id"), nil
}

func (t *profileTx) FindIndustryInsight(ctx context.Context, industry string) (*domain.IndustryInsight, error) {
	query, args, err := findInsightQuery(industry).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find insight query: %w", err)
	}

	in, err := scanInsight(t.tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(ctx, "find industry insight", err)
	}
	return in, nil
}

// CreateIndustryInsight relies on the unique index on industry. A concurrent
// creator makes this a no-op instead of aborting the transaction.
func (t *profileTx) CreateIndustryInsight(ctx context.Context, in *domain.IndustryInsight) (bool, error) {
	builder, err := createInsightQuery(in)
	if err != nil {
		return false, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("build create insight query: %w", err)
	}

	var id string
	err = t.tx.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, storeError(ctx, "create industry insight", err)
	}
	return true, nil
}
