// Package usagesource is a demo/test hooks.UsageSource, grounded on
// csp_billing_adapter/product_api.py's weighted-random quantity
// generator. Generalized to populate every configured usage metric
// with one sampled quantity per call, since the reference
// implementation predates multi-metric configuration.
package usagesource

import (
	"context"
	"math/rand"
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/config"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

var quantities = []int64{9, 10, 11, 25}
var weights = []float64{.33, .33, .33, .01}

// Source is a synthetic hooks.UsageSource for local runs and tests.
type Source struct {
	rng *rand.Rand
}

func New() *Source {
	return &Source{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Source) GetUsageData(ctx context.Context, cfg *config.Config) (*model.UsageRecord, error) {
	quantity := s.sample()

	metrics := make(map[string]int64, len(cfg.UsageMetrics))
	for metric := range cfg.UsageMetrics {
		metrics[metric] = quantity
	}

	return &model.UsageRecord{
		ReportingTime: timeutil.Now(),
		Metrics:       metrics,
	}, nil
}

func (s *Source) sample() int64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := s.rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return quantities[i]
		}
	}
	return quantities[len(quantities)-1]
}
