package model

import "time"

// Record is one structured row returned by a domain service.
type Record map[string]any

// Get returns the field rendered as a string, or "".
func (r Record) Get(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return toString(v)
	}
}

// RequestMode tells a domain service how to run a lookup. Recovery moves a
// failing call to a different mode instead of repeating it.
type RequestMode string

const (
	ModeStandard RequestMode = "standard"
	ModeDirect   RequestMode = "direct"
	ModeBroad    RequestMode = "broad"
	ModeSimple   RequestMode = "simple"
	ModeCached   RequestMode = "cached"
)

// Context keys folded between batches and read by services.
const (
	CtxOrderID        = "order_id"
	CtxUserID         = "user_id"
	CtxProductName    = "product_name"
	CtxTrackingNumber = "tracking_number"
	CtxTicketID       = "ticket_id"
	CtxTransactionID  = "transaction_id"
	CtxStatus         = "status"
	CtxDate           = "date"
)

// FoldedKeys are the identifiers copied from a batch's first record into the
// context of later batches.
var FoldedKeys = []string{CtxOrderID, CtxUserID, CtxTrackingNumber, CtxTicketID}

// ServiceRequest is the input to one domain-service call.
type ServiceRequest struct {
	Query    string            `json:"query"`
	Context  map[string]string `json:"context"`
	Entities []ExtractedEntity `json:"entities"`
	Mode     RequestMode       `json:"mode"`
	Limit    int               `json:"limit,omitempty"`
}

// Clone returns a copy with an independent context map.
func (r ServiceRequest) Clone() ServiceRequest {
	ctx := make(map[string]string, len(r.Context))
	for k, v := range r.Context {
		ctx[k] = v
	}
	r.Context = ctx
	r.Entities = append([]ExtractedEntity(nil), r.Entities...)
	return r
}

// Attempt records one try of a service call during recovery.
type Attempt struct {
	Number int         `json:"number"`
	Mode   RequestMode `json:"mode"`
	Action string      `json:"action,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ServiceResult is the immutable outcome of one service invocation.
type ServiceResult struct {
	Service  ServiceName   `json:"service"`
	Success  bool          `json:"success"`
	Data     []Record      `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency"`
	Attempts []Attempt     `json:"attempts,omitempty"`
}

// Failed builds a failed result.
func Failed(s ServiceName, msg string, latency time.Duration) ServiceResult {
	return ServiceResult{Service: s, Success: false, Error: msg, Latency: latency}
}
