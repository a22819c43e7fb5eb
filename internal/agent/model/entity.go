package model

// EntityType is the kind of value pulled out of query text.
type EntityType string

const (
	EntityOrderID        EntityType = "order_id"
	EntityUserID         EntityType = "user_id"
	EntityProductName    EntityType = "product_name"
	EntityTrackingNumber EntityType = "tracking_number"
	EntityTicketID       EntityType = "ticket_id"
	EntityTransactionID  EntityType = "transaction_id"
	EntityAmount         EntityType = "amount"
	EntityDateRange      EntityType = "date_range"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityOrderID, EntityUserID, EntityProductName, EntityTrackingNumber,
		EntityTicketID, EntityTransactionID, EntityAmount, EntityDateRange:
		return true
	}
	return false
}

// Entity sources.
const (
	SourcePattern    = "pattern"
	SourceClassifier = "classifier"
	SourceCache      = "cache"
	SourceDecomposer = "decomposer"
)

// ExtractedEntity is one typed value found in a query. Several entities of the
// same type may coexist.
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Source     string     `json:"source,omitempty"`
}

// DedupeEntities drops repeated (type, value) pairs keeping first occurrence.
func DedupeEntities(in []ExtractedEntity) []ExtractedEntity {
	if len(in) == 0 {
		return in
	}
	type key struct {
		t EntityType
		v string
	}
	seen := make(map[key]struct{}, len(in))
	out := make([]ExtractedEntity, 0, len(in))
	for _, e := range in {
		k := key{e.Type, e.Value}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// FirstEntity returns the first entity of type t.
func FirstEntity(entities []ExtractedEntity, t EntityType) (ExtractedEntity, bool) {
	for _, e := range entities {
		if e.Type == t {
			return e, true
		}
	}
	return ExtractedEntity{}, false
}
