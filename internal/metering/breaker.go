package metering

import (
	"context"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/circuitbreaker"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

// BreakerCSPClient wraps a CSPClient so repeated meter_billing failures
// trip a circuit breaker and fail fast instead of retrying into a CSP
// outage — complementary to, not a replacement for, the per-call retry
// budget Engine already applies.
type BreakerCSPClient struct {
	Client  CSPClient
	Breaker *circuitbreaker.Breaker
}

// NewBreakerCSPClient wraps client with a breaker using the default
// meter_billing configuration.
func NewBreakerCSPClient(client CSPClient) *BreakerCSPClient {
	return &BreakerCSPClient{
		Client:  client,
		Breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("meter_billing")),
	}
}

func (b *BreakerCSPClient) MeterBilling(ctx context.Context, cfg *config.Config, dimensions model.BilledDimensions, timestamp time.Time, dryRun bool) (model.MeterResult, error) {
	return circuitbreaker.Execute(b.Breaker, func() (model.MeterResult, error) {
		return b.Client.MeterBilling(ctx, cfg, dimensions, timestamp, dryRun)
	})
}
