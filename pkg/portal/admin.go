package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AdminOrderPage is the back-office order listing. Degraded is set when owner and vehicle
// joins could not be loaded and plain rows were returned instead.
type AdminOrderPage struct {
	Orders   []AdminOrder `json:"orders"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	Degraded bool         `json:"degraded,omitempty"`
}

// AdminOrderDetail gathers everything the back-office shows for one order.
type AdminOrderDetail struct {
	Order         AdminOrder `json:"order"`
	Documents     []Document `json:"documents"`
	LatestPayment *Payment   `json:"latest_payment,omitempty"`
	Partial       []string   `json:"partial,omitempty"`
}

// UserPage is the back-office profile listing.
type UserPage struct {
	Users []Profile `json:"users"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Stats are the dashboard counters. Partial names the counters that could not be computed.
type Stats struct {
	OrdersByStatus map[OrderStatus]int64 `json:"orders_by_status,omitempty"`
	TotalOrders    int64                 `json:"total_orders"`
	Revenue        *decimal.Decimal      `json:"revenue,omitempty"`
	Users          *int64                `json:"users,omitempty"`
	Documents      *int64                `json:"documents,omitempty"`
	Partial        []string              `json:"partial,omitempty"`
}

var revenueStatuses = []OrderStatus{OrderStatusProcessing, OrderStatusCompleted}

// ListAdminOrders lists orders with owner and vehicle, falling back to unjoined rows.
func (service *Service) ListAdminOrders(ctx context.Context, caller Caller, rawStatus string, page Page) (AdminOrderPage, error) {
	if err := caller.RequireAdmin(); err != nil {
		return AdminOrderPage{}, err
	}
	query := AdminOrderQuery{Page: page}
	if strings.TrimSpace(rawStatus) != "" {
		status, err := ParseOrderStatus(rawStatus)
		if err != nil {
			return AdminOrderPage{}, err
		}
		query.Status = status
	}
	result := AdminOrderPage{Page: page.Number, Limit: page.Limit}
	orders, total, joinError := service.store.ListAdminOrders(ctx, query)
	if joinError == nil {
		result.Orders, result.Total = orders, total
		return result, nil
	}
	service.logOperation(ctx, OperationLog{Operation: operationAdminListOrders, ActorID: caller.ID, Status: operationStatusDegraded, Error: joinError})

	plain, total, err := service.store.ListOrdersUnjoined(ctx, query)
	if err != nil {
		return AdminOrderPage{}, WrapError("service", "order", "admin_list", errors.Join(joinError, err))
	}
	result.Orders = make([]AdminOrder, 0, len(plain))
	for _, order := range plain {
		result.Orders = append(result.Orders, AdminOrder{Order: order})
	}
	result.Total = total
	result.Degraded = true
	return result, nil
}

// AdminOrderDetail loads one order with its owner, documents and latest payment.
// Secondary lookups that fail are listed in Partial instead of failing the request.
func (service *Service) AdminOrderDetail(ctx context.Context, caller Caller, orderID string) (AdminOrderDetail, error) {
	if err := caller.RequireAdmin(); err != nil {
		return AdminOrderDetail{}, err
	}
	order, err := service.store.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return AdminOrderDetail{}, translateNotFound(err, ErrOrderNotFound)
	}
	detail := AdminOrderDetail{Order: AdminOrder{Order: order}, Documents: []Document{}}
	degrade := func(part string, err error) {
		detail.Partial = append(detail.Partial, part)
		service.logOperation(ctx, OperationLog{Operation: operationAdminOrderDetail, ActorID: caller.ID, OrderID: order.ID, Status: operationStatusDegraded, Detail: part, Error: err})
	}

	if owner, err := service.store.GetProfile(ctx, order.UserID); err == nil {
		detail.Order.Owner = &owner
	} else {
		degrade("owner", err)
	}
	if documents, err := service.store.ListDocumentsForOrder(ctx, order.ID); err == nil {
		detail.Documents = documents
	} else {
		degrade("documents", err)
	}
	payment, err := service.store.LatestPayment(ctx, order.ID)
	switch {
	case err == nil:
		detail.LatestPayment = &payment
	case !errors.Is(err, ErrNotFound):
		degrade("latest_payment", err)
	}
	return detail, nil
}

// ListUsers pages through profiles for the back-office.
func (service *Service) ListUsers(ctx context.Context, caller Caller, page Page) (UserPage, error) {
	if err := caller.RequireAdmin(); err != nil {
		return UserPage{}, err
	}
	profiles, total, err := service.store.ListProfiles(ctx, page)
	if err != nil {
		return UserPage{}, WrapError("service", "profile", "list", err)
	}
	return UserPage{Users: profiles, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// ChangeRole assigns a role. Only SUPER_ADMIN may call it and the main admin is never modified.
func (service *Service) ChangeRole(ctx context.Context, caller Caller, profileID string, rawRole string) (Profile, error) {
	if err := caller.RequireSuperAdmin(); err != nil {
		return Profile{}, err
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return Profile{}, err
	}
	profile, err := service.store.GetProfile(ctx, strings.TrimSpace(profileID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
		}
		return Profile{}, err
	}
	if service.isMainAdmin(profile) {
		service.logOperation(ctx, OperationLog{Operation: operationChangeRole, ActorID: caller.ID, SubjectID: profile.ID, Error: ErrMainAdminProtected})
		return Profile{}, ErrMainAdminProtected
	}
	now := service.now()
	operationError := service.store.UpdateProfileRole(ctx, profile.ID, role, now)
	service.logOperation(ctx, OperationLog{
		Operation: operationChangeRole,
		ActorID:   caller.ID,
		SubjectID: profile.ID,
		Detail:    fmt.Sprintf("%s->%s", profile.Role, role),
		Error:     operationError,
	})
	if operationError != nil {
		return Profile{}, operationError
	}
	profile.Role = role
	profile.UpdatedAt = now
	return profile, nil
}

// Stats computes the dashboard counters; each failing counter is dropped and reported.
func (service *Service) Stats(ctx context.Context, caller Caller) (Stats, error) {
	if err := caller.RequireAdmin(); err != nil {
		return Stats{}, err
	}
	var stats Stats
	degrade := func(part string, err error) {
		stats.Partial = append(stats.Partial, part)
		service.logOperation(ctx, OperationLog{Operation: operationAdminStats, ActorID: caller.ID, Status: operationStatusDegraded, Detail: part, Error: err})
	}

	if counts, err := service.store.CountOrdersByStatus(ctx); err == nil {
		stats.OrdersByStatus = make(map[OrderStatus]int64, len(AllOrderStatuses))
		for _, status := range AllOrderStatuses {
			stats.OrdersByStatus[status] = counts[status]
			stats.TotalOrders += counts[status]
		}
	} else {
		degrade("orders_by_status", err)
	}
	if revenue, err := service.store.SumOrderRevenue(ctx, revenueStatuses); err == nil {
		stats.Revenue = &revenue
	} else {
		degrade("revenue", err)
	}
	if users, err := service.store.CountProfiles(ctx); err == nil {
		stats.Users = &users
	} else {
		degrade("users", err)
	}
	if documents, err := service.store.CountDocuments(ctx); err == nil {
		stats.Documents = &documents
	} else {
		degrade("documents", err)
	}
	return stats, nil
}
