package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateShipment      OutboxAggregateType = "shipment"
	AggregateReturnRequest OutboxAggregateType = "return_request"
	AggregateProduct       OutboxAggregateType = "product"
	AggregateLocalSale     OutboxAggregateType = "local_sale"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShipment,
	AggregateReturnRequest,
	AggregateProduct,
	AggregateLocalSale,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return member(a, validAggregateTypes)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseMember("aggregate type", value, validAggregateTypes)
}

// OutboxEventType names a domain event written to outbox_events.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderDeleted          OutboxEventType = "order_deleted"
	EventShipmentStatusChanged OutboxEventType = "shipment_status_changed"
	EventReturnRequested       OutboxEventType = "return_requested"
	EventReturnStatusChanged   OutboxEventType = "return_status_changed"
	EventStockLow              OutboxEventType = "stock_low"
	EventLocalSaleCreated      OutboxEventType = "local_sale_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderDeleted,
	EventShipmentStatusChanged,
	EventReturnRequested,
	EventReturnStatusChanged,
	EventStockLow,
	EventLocalSaleCreated,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return member(e, validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseMember("event type", value, validOutboxEventTypes)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
