package main

import (
	"context"
	"log/slog"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/certificate"
	"github.com/AfshinJalili/captable/services/captable/internal/service"
	"github.com/AfshinJalili/captable/services/captable/internal/storage"
	"github.com/shopspring/decimal"
)

type sampleIssuance struct {
	shares int64
	price  string
	notes  string
}

var sampleIssuances = []sampleIssuance{
	{shares: 10000, price: "0.0010", notes: "Founder grant"},
	{shares: 2500, price: "1.25", notes: "Seed round"},
	{shares: 1000, price: "10.50", notes: "Series A"},
}

// seedIssuances records the sample issuances once; a profile that already
// holds shares is left alone.
func seedIssuances(ctx context.Context, store *storage.Store, caller access.Principal, profile *storage.Profile, attempts int, logger *slog.Logger) error {
	shares, _, err := store.SumIssuancesByProfile(ctx, profile.ID)
	if err != nil {
		return err
	}
	if shares.IsPositive() {
		logger.Info("demo shareholder already holds shares, skipping issuances", "shares", shares.String())
		return nil
	}

	ledger := service.NewLedgerService(store, certificate.NewNumberGenerator(), nil, "", nil, logger, nil, attempts)
	for _, sample := range sampleIssuances {
		_, err := ledger.CreateIssuance(ctx, caller, service.CreateIssuanceInput{
			ShareholderID:  profile.ID,
			NumberOfShares: sample.shares,
			PricePerShare:  decimal.RequireFromString(sample.price),
			Notes:          sample.notes,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
