package worker

import (
	"context"
	"fmt"
	"log"

	"dealer-service/internal/broker"
	"dealer-service/internal/models"
	"dealer-service/internal/store"
	"dealer-service/internal/util"

	"go.uber.org/zap"
)

// ReconcileWorker re-applies vehicle status flips that failed as a sale
// side effect. Consuming the reconcile event is idempotent: the processed
// events table guards against replays, and flipping an already-sold vehicle
// is a no-op.
type ReconcileWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewReconcileWorker creates a new reconcile worker
func NewReconcileWorker(consumer *broker.Consumer, st *store.Store) *ReconcileWorker {
	w := &ReconcileWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnInventoryReconcile(w.handleReconcile)
	w.eventHandler = eventHandler

	return w
}

func (w *ReconcileWorker) handleReconcile(ctx context.Context, event *models.InventoryReconcileEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	vehicle, err := w.store.GetVehicleByID(ctx, event.VehicleID)
	if err != nil {
		return fmt.Errorf("failed to load vehicle for reconciliation: %w", err)
	}

	if vehicle.Status != event.TargetStatus {
		if err := w.store.UpdateVehicleStatus(ctx, event.VehicleID, event.TargetStatus); err != nil {
			// Leave the message uncommitted so the consumer retries it.
			return fmt.Errorf("failed to re-apply status flip: %w", err)
		}
		util.ReconcileAppliedTotal.Inc()
		w.logger.Info("Re-applied missed vehicle status flip",
			zap.Int64("vehicle_id", event.VehicleID),
			zap.String("status", string(event.TargetStatus)),
			zap.Int64("sale_id", event.SaleID))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// Start starts the worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	log.Println("Starting reconcile worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconcileWorker) Stop() error {
	log.Println("Stopping reconcile worker...")
	return w.consumer.Close()
}
