package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderInput is the typed order submission.
type CreateOrderInput struct {
	Type        string           `json:"type" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	VehicleData *VehicleData     `json:"vehicleData" validate:"-"`
	Metadata    map[string]any   `json:"metadata"`
}

// CreateOrder registers a pending order for the caller.
func (service *Service) CreateOrder(ctx context.Context, caller Caller, input CreateOrderInput) (OrderSummary, error) {
	if strings.TrimSpace(input.Type) == "" || input.Price == nil {
		return OrderSummary{}, ErrMissingOrderFields
	}
	if err := service.validateStruct(input); err != nil {
		return OrderSummary{}, err
	}
	orderType, err := ParseOrderType(input.Type)
	if err != nil {
		return OrderSummary{}, err
	}
	if !input.Price.IsPositive() {
		return OrderSummary{}, ErrInvalidPrice
	}
	now := service.now()
	reference, err := NewOrderReference(now, service.suffixFn())
	if err != nil {
		return OrderSummary{}, err
	}

	order := Order{
		ID:        uuid.NewString(),
		UserID:    caller.ID,
		Type:      orderType,
		Status:    OrderStatusPending,
		Reference: reference,
		Price:     input.Price.Round(2),
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.VehicleData != nil {
		order.VehicleID = service.resolveVehicleBestEffort(ctx, caller, *input.VehicleData)
	}

	operationError := service.store.InsertOrder(ctx, order)
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateOrder,
		ActorID:   caller.ID,
		OrderID:   order.ID,
		Detail:    reference,
		Error:     operationError,
	})
	if operationError != nil {
		return OrderSummary{}, WrapError("service", "order", "insert", operationError)
	}
	return order.Summary(), nil
}

// resolveVehicleBestEffort never fails the order: a broken vehicle lookup leaves the order without vehicle.
func (service *Service) resolveVehicleBestEffort(ctx context.Context, caller Caller, data VehicleData) string {
	vehicleID, err := service.ResolveOrCreateVehicle(ctx, data)
	entry := OperationLog{
		Operation: operationResolveVehicle,
		ActorID:   caller.ID,
		SubjectID: vehicleID,
		Error:     err,
	}
	if data.Empty() {
		entry.Status = operationStatusSkipped
	}
	service.logOperation(ctx, entry)
	if err != nil {
		return ""
	}
	return vehicleID
}

// GetOrder returns an order owned by the caller. Foreign orders are reported as missing.
func (service *Service) GetOrder(ctx context.Context, caller Caller, orderID string) (Order, error) {
	order, err := service.store.GetOrderForUser(ctx, strings.TrimSpace(orderID), caller.ID)
	if err != nil {
		return Order{}, translateNotFound(err, ErrOrderNotFound)
	}
	return order, nil
}

// ListOrders returns the caller's orders, newest first.
func (service *Service) ListOrders(ctx context.Context, caller Caller) ([]Order, error) {
	orders, err := service.store.ListOrdersForUser(ctx, caller.ID)
	if err != nil {
		return nil, WrapError("service", "order", "list", err)
	}
	return orders, nil
}

// UpdateStatus applies an admin status change along the lifecycle edges.
func (service *Service) UpdateStatus(ctx context.Context, caller Caller, orderID string, rawStatus string) (Order, error) {
	if err := caller.RequireAdmin(); err != nil {
		return Order{}, err
	}
	target, err := ParseOrderStatus(rawStatus)
	if err != nil {
		return Order{}, err
	}
	order, err := service.store.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return Order{}, translateNotFound(err, ErrOrderNotFound)
	}
	if order.Status != target && !CanTransition(order.Status, target, ActorAdmin) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}
	now := service.now()
	operationError := service.store.UpdateOrderStatus(ctx, order.ID, []OrderStatus{order.Status}, target, now)
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateStatus,
		ActorID:   caller.ID,
		OrderID:   order.ID,
		Detail:    fmt.Sprintf("%s->%s", order.Status, target),
		Error:     operationError,
	})
	if operationError != nil {
		return Order{}, operationError
	}
	order.Status = target
	order.UpdatedAt = now
	return order, nil
}

func translateNotFound(err error, specific error) error {
	if errors.Is(err, ErrNotFound) {
		return specific
	}
	return err
}
