package outbox

import (
	"context"
	"encoding/json"
)

// InsertEventInTx marshals payload and appends it to the outbox inside tx.
func InsertEventInTx(
	ctx context.Context,
	tx Querier,
	aggregateType string,
	aggregateID string,
	routingKey string,
	payload interface{},
) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return InsertEvent(ctx, tx, &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	})
}
