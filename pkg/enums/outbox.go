package enums

import "fmt"

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateMarketItem OutboxAggregateType = "market_item"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMarketItem,
}

// IsValid reports whether the value matches a canonical aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names the domain events the listing engine emits, one per
// state-changing operation.
type OutboxEventType string

const (
	EventItemCreated  OutboxEventType = "item_created"
	EventItemSold     OutboxEventType = "item_sold"
	EventItemUnlisted OutboxEventType = "item_unlisted"
	EventItemPriceSet OutboxEventType = "item_price_set"
)

var validOutboxEventTypes = []OutboxEventType{
	EventItemCreated,
	EventItemSold,
	EventItemUnlisted,
	EventItemPriceSet,
}

// IsValid reports whether the value matches a canonical event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
