package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"dealer-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishVehicleStatusChanged publishes VehicleStatusChanged event
func (ep *EventPublisher) PublishVehicleStatusChanged(ctx context.Context, event *models.VehicleStatusChangedEvent) error {
	key := fmt.Sprintf("vehicle-%d", event.VehicleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSaleCompleted publishes SaleCompleted event
func (ep *EventPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	key := fmt.Sprintf("vehicle-%d", event.VehicleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishTradeInCreated publishes TradeInCreated event
func (ep *EventPublisher) PublishTradeInCreated(ctx context.Context, event *models.TradeInCreatedEvent) error {
	key := fmt.Sprintf("vehicle-%d", event.VehicleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishImagePrimaryChanged publishes ImagePrimaryChanged event
func (ep *EventPublisher) PublishImagePrimaryChanged(ctx context.Context, event *models.ImagePrimaryChangedEvent) error {
	key := fmt.Sprintf("vehicle-%d", event.VehicleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishInventoryReconcile publishes InventoryReconcile event
func (ep *EventPublisher) PublishInventoryReconcile(ctx context.Context, event *models.InventoryReconcileEvent) error {
	key := fmt.Sprintf("vehicle-%d", event.VehicleID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onInventoryReconcile func(context.Context, *models.InventoryReconcileEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnInventoryReconcile registers a handler for InventoryReconcile events
func (eh *EventHandler) OnInventoryReconcile(handler func(context.Context, *models.InventoryReconcileEvent) error) {
	eh.onInventoryReconcile = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeInventoryReconcile:
		if eh.onInventoryReconcile != nil {
			var event models.InventoryReconcileEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal InventoryReconcile event: %w", err)
			}
			return eh.onInventoryReconcile(ctx, &event)
		}

	default:
		// Status-change / sale / image events exist for downstream consumers;
		// this service only acts on reconcile requests.
	}

	return nil
}
