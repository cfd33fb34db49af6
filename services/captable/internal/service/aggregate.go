package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/shopspring/decimal"
)

type AggregateStore interface {
	SumIssuances(ctx context.Context) (storage.LedgerTotals, error)
	ListShareholderTotals(ctx context.Context) ([]storage.ProfileTotals, error)
}

// AggregateService derives ownership views from the ledger on every read.
type AggregateService struct {
	store AggregateStore
}

type DashboardStats struct {
	TotalShareholders int64
	TotalSharesIssued decimal.Decimal
	TotalValue        decimal.Decimal
}

type OwnershipShare struct {
	ShareholderName string
	Shares          decimal.Decimal
	Percentage      decimal.Decimal
	Value           decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func NewAggregateService(store AggregateStore) *AggregateService {
	return &AggregateService{store: store}
}

func (s *AggregateService) DashboardStats(ctx context.Context, caller access.Principal) (DashboardStats, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return DashboardStats{}, err
	}
	totals, err := s.store.SumIssuances(ctx)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("sum issuances: %w", err)
	}
	return DashboardStats{
		TotalShareholders: totals.Shareholders,
		TotalSharesIssued: totals.Shares,
		TotalValue:        totals.Value,
	}, nil
}

// OwnershipDistribution lists every holder with shares and their percentage
// of all issued shares, largest first.
func (s *AggregateService) OwnershipDistribution(ctx context.Context, caller access.Principal) ([]OwnershipShare, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.store.ListShareholderTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shareholder totals: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.TotalShares)
	}
	out := []OwnershipShare{}
	if !total.IsPositive() {
		return out, nil
	}

	for _, row := range rows {
		if !row.TotalShares.IsPositive() {
			continue
		}
		out = append(out, OwnershipShare{
			ShareholderName: row.FullName(),
			Shares:          row.TotalShares,
			Percentage:      row.TotalShares.Mul(hundred).DivRound(total, 2),
			Value:           row.TotalValue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Shares.Cmp(out[j].Shares); c != 0 {
			return c > 0
		}
		return out[i].ShareholderName < out[j].ShareholderName
	})
	return out, nil
}

func (s *AggregateService) ShareholdersWithTotals(ctx context.Context, caller access.Principal) ([]Shareholder, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}
	rows, err := s.store.ListShareholderTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shareholder totals: %w", err)
	}
	return rows, nil
}
