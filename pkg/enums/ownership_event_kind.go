package enums

import "fmt"

// OwnershipEventKind distinguishes buyer purchases from the seller's unlist
// reclaim on a market item's ownership ledger.
type OwnershipEventKind string

const (
	OwnershipEventPurchase OwnershipEventKind = "purchase"
	OwnershipEventReclaim  OwnershipEventKind = "reclaim"
)

var validOwnershipEventKinds = []OwnershipEventKind{
	OwnershipEventPurchase,
	OwnershipEventReclaim,
}

// IsValid reports whether the value matches a canonical ownership event kind.
func (k OwnershipEventKind) IsValid() bool {
	for _, candidate := range validOwnershipEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOwnershipEventKind converts raw input into OwnershipEventKind.
func ParseOwnershipEventKind(value string) (OwnershipEventKind, error) {
	for _, candidate := range validOwnershipEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ownership event kind %q", value)
}
