package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/account"
	"github.com/tinoosan/voucherledger/internal/service/party"
)

type seedWriter interface {
	account.Writer
	party.Writer
}

// seedDev inserts a few demo accounts and parties for local development.
func seedDev(ctx context.Context, w seedWriter, currency string) ([]ledger.Account, []ledger.Party, error) {
	now := time.Now().UTC()
	zero, err := ledger.Zero(currency)
	if err != nil {
		return nil, nil, err
	}
	var accs []ledger.Account
	for _, spec := range []struct {
		name string
		typ  ledger.AccountType
	}{
		{"Cash in Hand", ledger.AccountTypeCash},
		{"Main Bank", ledger.AccountTypeBank},
		{"Sales Income", ledger.AccountTypeRevenue},
	} {
		a, err := w.CreateAccount(ctx, ledger.Account{ID: uuid.New(), Name: spec.name, Type: spec.typ, OpeningBalance: zero, IsActive: true, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return nil, nil, fmt.Errorf("seed account %q: %w", spec.name, err)
		}
		accs = append(accs, a)
	}
	var parties []ledger.Party
	for _, spec := range []struct {
		kind ledger.PartyKind
		name string
	}{
		{ledger.PartyCustomer, "Walk-in Customer"},
		{ledger.PartySupplier, "General Supplier"},
	} {
		p, err := w.CreateParty(ctx, ledger.Party{ID: uuid.New(), Kind: spec.kind, Name: spec.name, OpeningBalance: zero, IsActive: true, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return nil, nil, fmt.Errorf("seed %s %q: %w", spec.kind, spec.name, err)
		}
		parties = append(parties, p)
	}
	return accs, parties, nil
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, accs []ledger.Account, parties []ledger.Party) {
	ids := map[string]string{}
	for _, a := range accs {
		ids[a.Code] = a.ID.String()
	}
	for _, p := range parties {
		ids[p.Code] = p.ID.String()
	}
	l.Info("DEV seed", "ids", ids)
}
