// Package localcsp is a dry-run CSP simulator for local runs and
// integration tests, grounded on csp_billing_adapter/local_csp.py: a
// random one-in-ten failure rate, an opaque record id on success, and
// a fixed account number. Like the original, a non-dry-run call either
// raises (simulated here as a returned error) or returns a bare opaque
// string covering every submitted dimension — the legacy meter_billing
// return form that metering.NormalizingCSPClient resolves into
// model.MeterResult before the engine ever sees it (design note: "CSP
// return polymorphism").
package localcsp

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

// CSP is a hooks.CSP implementation that never leaves the process.
type CSP struct {
	rng *rand.Rand
}

// New builds a CSP simulator seeded from the current time.
func New() *CSP {
	return &CSP{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (c *CSP) MeterBilling(
	ctx context.Context,
	cfg *config.Config,
	dimensions model.BilledDimensions,
	timestamp time.Time,
	dryRun bool,
) (interface{}, error) {
	if dryRun {
		return model.MeterResult{}, nil
	}

	if c.rng.Intn(10) == 4 {
		return nil, fmt.Errorf("unable to submit meter usage: payment not billed")
	}

	return uuid.New().String(), nil
}

func (c *CSP) GetCSPName(ctx context.Context, cfg *config.Config) (string, error) {
	return "local", nil
}

func (c *CSP) GetAccountInfo(ctx context.Context, cfg *config.Config) (map[string]string, error) {
	return map[string]string{"account_number": "123456789"}, nil
}

func (c *CSP) GetVersion(ctx context.Context) (name string, version string, err error) {
	return "local", "0.0.0-dev", nil
}
