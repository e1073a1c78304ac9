// Package cspconfig is the in-memory mirror of the operator-visible
// status document, grounded on csp_billing_adapter/csp_config.py and
// expanded per spec.md §3/§4.4 with the error list, account info, and
// version fields the distilled reference only stubs.
package cspconfig

import (
	"time"

	"github.com/SUSE-Enceladus/csp-billing-adapter/internal/timeutil"
)

// CSPConfig is the durable, operator-visible status document.
type CSPConfig struct {
	BillingAPIAccessOK bool              `json:"billing_api_access_ok"`
	Timestamp          string            `json:"timestamp"`
	Expire             string            `json:"expire"`
	CustomerCSPData    map[string]string `json:"customer_csp_data,omitempty"`
	ArchiveLocation    string            `json:"archive_location"`
	CustomerBillingID  string            `json:"customer_billing_id,omitempty"`
	Errors             []string          `json:"errors"`
	Usage              map[string]int64  `json:"usage,omitempty"`
	LastBilled         string            `json:"last_billed,omitempty"`
	BaseProduct        string            `json:"base_product,omitempty"`
	Versions           map[string]string `json:"versions,omitempty"`
}

// New builds the initial CSPConfig document. expire is now +
// reporting_interval in periodic mode, or end_of_support in fixed mode
// (spec.md §4.4); callers pass the already-resolved value since the
// two modes compute it differently.
func New(now time.Time, archiveLocation string, expire time.Time, accountInfo map[string]string) *CSPConfig {
	return &CSPConfig{
		BillingAPIAccessOK: true,
		Timestamp:          timeutil.DateToString(now),
		Expire:             timeutil.DateToString(expire),
		CustomerCSPData:    accountInfo,
		ArchiveLocation:    archiveLocation,
		Errors:             []string{},
	}
}

// ResetErrors rewrites the errors list from scratch — invariant 6:
// errors are never accumulated across ticks.
func (c *CSPConfig) ResetErrors() {
	c.Errors = []string{}
}

// AppendError records one error observed during the current tick.
func (c *CSPConfig) AppendError(msg string) {
	c.Errors = append(c.Errors, msg)
}

// SetVersions records the adapter/plugin version pair reported by the
// get_version hook (supplemented feature, SPEC_FULL.md §4).
func (c *CSPConfig) SetVersions(name, version string) {
	if c.Versions == nil {
		c.Versions = map[string]string{}
	}
	c.Versions[name] = version
}

// Merge applies a shallow, present-fields-only update, matching
// update_csp_config(replace=false). Errors is always replaced wholesale
// since invariant 6 treats it as tick-scoped, never appended to across
// merges.
func (c *CSPConfig) Merge(patch *CSPConfig) {
	if patch == nil {
		return
	}
	c.BillingAPIAccessOK = patch.BillingAPIAccessOK
	if patch.Timestamp != "" {
		c.Timestamp = patch.Timestamp
	}
	if patch.Expire != "" {
		c.Expire = patch.Expire
	}
	if patch.Errors != nil {
		c.Errors = patch.Errors
	}
	if patch.Usage != nil {
		c.Usage = patch.Usage
	}
	if patch.LastBilled != "" {
		c.LastBilled = patch.LastBilled
	}
	if patch.BaseProduct != "" {
		c.BaseProduct = patch.BaseProduct
	}
	if patch.CustomerBillingID != "" {
		c.CustomerBillingID = patch.CustomerBillingID
	}
	if patch.CustomerCSPData != nil {
		c.CustomerCSPData = patch.CustomerCSPData
	}
	if patch.ArchiveLocation != "" {
		c.ArchiveLocation = patch.ArchiveLocation
	}
	if patch.Versions != nil {
		c.Versions = patch.Versions
	}
}
