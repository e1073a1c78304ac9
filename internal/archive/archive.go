// Package archive implements a rolling, bounded-length and
// bounded-byte history of submitted bills, grounded on
// csp_billing_adapter/archive.py and expanded per spec.md §4.6/§8 with
// the byte-size cap the reference implementation's early versions omit.
package archive

import (
	"context"
	"encoding/json"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/model"
)

// Entry is one submitted-bill record, serialized to the archive
// document (spec.md §6: Archive = ordered list of
// {billing_time, billing_status, billed_usage, usage_records}).
type Entry struct {
	SubmissionID string              `json:"submission_id"`
	BillingTime  string              `json:"billing_time"`
	BillingStatus model.MeterResult  `json:"billing_status,omitempty"`
	BilledUsage  model.BilledDimensions `json:"billed_usage"`
	UsageRecords []model.UsageRecord `json:"usage_records"`
}

// Store is the archive hook group's persistence surface
// (get_metering_archive / save_metering_archive), kept separate from
// Append so the bound-enforcement logic here is storage-agnostic.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Archive enforces the length and byte bounds described in spec.md
// §4.6 and §8 on top of a Store.
type Archive struct {
	store       Store
	maxLength   int
	maxBytes    int // <= 1 disables the byte check
}

// New builds an Archive. maxLength <= 0 means unbounded length.
func New(store Store, maxLength, maxBytes int) *Archive {
	return &Archive{store: store, maxLength: maxLength, maxBytes: maxBytes}
}

// Append loads the current archive, adds entry, trims from the front
// to satisfy both the length cap and the byte cap, and saves.
//
// The byte check is skipped when maxBytes <= 1: a threshold that low
// would otherwise trim an empty list forever, since even `[]` serializes
// to more than one byte.
func (a *Archive) Append(ctx context.Context, entry Entry) error {
	entries, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	if a.maxLength > 0 {
		for len(entries) > a.maxLength {
			entries = entries[1:]
		}
	}

	if a.maxBytes > 1 {
		for {
			b, err := json.Marshal(entries)
			if err != nil {
				return err
			}
			if len(b) <= a.maxBytes || len(entries) <= 1 {
				break
			}
			entries = entries[1:]
		}
	}

	return a.store.Save(ctx, entries)
}

// Load returns the current archive contents, for callers (tests,
// operators) that want to inspect it directly.
func (a *Archive) Load(ctx context.Context) ([]Entry, error) {
	return a.store.Load(ctx)
}
