// Package source collects the two inputs of a compliance run: per-user
// driver usage and the per-driver version-support table.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// Unknown is reported for account fields that could not be determined.
const Unknown = "Unknown"

// ErrNoSupportInfo is returned when a source yields an empty support table.
var ErrNoSupportInfo = errors.New("no driver support metadata returned")

// Account identifies where the usage came from.
type Account struct {
	Name   string
	Region string
}

// UnknownAccount is used when account details are unavailable.
var UnknownAccount = Account{Name: Unknown, Region: Unknown}

// Source supplies usage and support metadata.
type Source interface {
	// Usage returns one record per (client application id, user) over the
	// trailing lookbackDays.
	Usage(ctx context.Context, lookbackDays int) ([]compliance.UsageRecord, error)
	// SupportInfo returns one entry per driver.
	SupportInfo(ctx context.Context) ([]compliance.SupportInfo, error)
	// Account describes the account the usage belongs to.
	Account(ctx context.Context) (Account, error)
}

// Inputs are the raw results of one fetch.
type Inputs struct {
	Usage        []compliance.UsageRecord
	Support      []compliance.SupportInfo
	Account      Account
	LookbackDays int
	FetchedAt    time.Time
}

// Fetch retrieves usage, support metadata and account details concurrently.
// A failure of either the usage or the support fetch cancels the other and
// nothing is returned. Account lookup failures are logged and reported as
// UnknownAccount.
func Fetch(ctx context.Context, src Source, lookbackDays int, logger *zap.Logger) (*Inputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", lookbackDays)
	}

	in := &Inputs{LookbackDays: lookbackDays, Account: UnknownAccount}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		usage, err := src.Usage(gctx, lookbackDays)
		if err != nil {
			return fmt.Errorf("failed to fetch driver usage: %w", err)
		}
		in.Usage = usage
		return nil
	})
	g.Go(func() error {
		support, err := src.SupportInfo(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch driver support metadata: %w", err)
		}
		if len(support) == 0 {
			return ErrNoSupportInfo
		}
		in.Support = support
		return nil
	})
	g.Go(func() error {
		acct, err := src.Account(gctx)
		if err != nil {
			logger.Warn("account lookup failed", zap.Error(err))
			return nil
		}
		if acct.Name == "" {
			acct.Name = Unknown
		}
		if acct.Region == "" {
			acct.Region = Unknown
		}
		in.Account = acct
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.FetchedAt = time.Now().UTC()
	logger.Debug("fetched inputs",
		zap.Int("usage_rows", len(in.Usage)),
		zap.Int("support_rows", len(in.Support)),
		zap.String("account", in.Account.Name))
	return in, nil
}
