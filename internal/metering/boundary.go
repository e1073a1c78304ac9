package metering

import (
	"context"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/hooks"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

// NormalizingCSPClient wraps a raw hooks.CSP so the engine only ever
// sees the canonical MeterResult form: meter_billing's dict|string
// return polymorphism (design note: "CSP return polymorphism") is
// resolved here via model.NormalizeMeterResult before anything in this
// package looks at the result.
type NormalizingCSPClient struct {
	CSP hooks.CSP
}

// NewNormalizingCSPClient wraps csp.
func NewNormalizingCSPClient(csp hooks.CSP) *NormalizingCSPClient {
	return &NormalizingCSPClient{CSP: csp}
}

func (n *NormalizingCSPClient) MeterBilling(ctx context.Context, cfg *config.Config, dimensions model.BilledDimensions, timestamp time.Time, dryRun bool) (model.MeterResult, error) {
	raw, err := n.CSP.MeterBilling(ctx, cfg, dimensions, timestamp, dryRun)
	if err != nil {
		return nil, err
	}
	return model.NormalizeMeterResult(raw, dimensions)
}
