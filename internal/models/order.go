// internal/models/order.go
package models

import "strings"

// Appointment statuses written to the NSA Status report field.
const (
	ApptStatusSuccess = "SUCCESS"
	ApptStatusFailed  = "FAILED"
)

// Per-channel notification statuses.
const (
	NotifyStatusSuccess      = "SUCCESS"
	NotifyStatusFailed       = "FAILED"
	NotifyStatusSkipped      = "SKIPPED"
	NotifyStatusDisabled     = "DISABLED"
	NotifyStatusNotAttempted = "NOT_ATTEMPTED"
)

// Overall notification outcomes aggregated across channels.
const (
	OverallSuccess       = "SUCCESS"
	OverallPartialFailed = "PARTIAL_FAILED"
	OverallFailed        = "FAILED"
)

// OrderRow is one closed repair order under processing. The identity fields
// come from the extraction step; the outcome fields are mutated in place by
// the scheduler and written to the batch report.
type OrderRow struct {
	DealerID          string `json:"dealerId"`
	RONumber          string `json:"roNumber"`
	OrderUUID         string `json:"orderUuid"`
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	CustomerKey       string `json:"customerKey"`
	CustomerUUID      string `json:"customerUuid"`
	VIN               string `json:"vin"`
	VehicleUUID       string `json:"vehicleUuid"`
	Opcodes           string `json:"opcodes"`     // comma-separated, as extracted
	ROCloseDate       string `json:"roCloseDate"` // YYYY-MM-DD

	// Outcome fields.
	NSAStatus   string `json:"nsaStatus"`
	NSADate     string `json:"nsaDate"`
	NSAUUID     string `json:"nsaUuid"`
	TextStatus  string `json:"textStatus"`
	EmailStatus string `json:"emailStatus"`
}

// OpcodeList splits the comma-separated opcode field into individual opcodes,
// dropping empty segments.
func (r *OrderRow) OpcodeList() []string {
	if r.Opcodes == "" {
		return nil
	}
	parts := strings.Split(r.Opcodes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DealerContext is the per-dealer configuration resolved once per batch.
// Immutable for the run once fetched.
type DealerContext struct {
	DealerID              string
	Name                  string
	DealerUUID            string
	DepartmentUUID        string
	SlotSizeMins          int
	ValidOpcodes          map[string]string // opcode -> description catalog
	DefaultNSAOpcode      string
	ServiceIntervalMonths int
}

// FilterOpcodes intersects the row's opcodes with the dealer catalog, keeping
// row order, and appends the default NSA opcode when absent.
func (d *DealerContext) FilterOpcodes(rowOpcodes []string) []string {
	filtered := make([]string, 0, len(rowOpcodes)+1)
	for _, op := range rowOpcodes {
		if _, ok := d.ValidOpcodes[op]; ok {
			filtered = append(filtered, op)
		}
	}
	if d.DefaultNSAOpcode != "" && !contains(filtered, d.DefaultNSAOpcode) {
		filtered = append(filtered, d.DefaultNSAOpcode)
	}
	return filtered
}

// Descriptions resolves catalog descriptions for the given opcodes. Opcodes
// without a catalog entry map to the empty string.
func (d *DealerContext) Descriptions(opcodes []string) map[string]string {
	out := make(map[string]string, len(opcodes))
	for _, op := range opcodes {
		out[op] = d.ValidOpcodes[op]
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
