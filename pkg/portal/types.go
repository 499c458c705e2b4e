package portal

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the authorization level stored on a profile.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// ParseRole validates a role name.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// IsAdmin reports whether the role grants back-office access.
func (role Role) IsAdmin() bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

func (role Role) String() string {
	return string(role)
}

// OrderType enumerates the administrative services sold.
type OrderType string

const (
	OrderTypeCarteGrise OrderType = "carte-grise"
	OrderTypePlaque     OrderType = "plaque"
	OrderTypeCOC        OrderType = "coc"
)

// ParseOrderType validates an order type.
func ParseOrderType(raw string) (OrderType, error) {
	switch orderType := OrderType(strings.ToLower(strings.TrimSpace(raw))); orderType {
	case OrderTypeCarteGrise, OrderTypePlaque, OrderTypeCOC:
		return orderType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOrderType, raw)
	}
}

// OrderStatus defines the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusUnpaid     OrderStatus = "unpaid"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusUnpaid,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// ParseOrderStatus validates a status name.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllOrderStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func (status OrderStatus) String() string {
	return string(status)
}

// Terminal reports whether no transition leaves the status.
func (status OrderStatus) Terminal() bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// Actor identifies who drives a status transition.
type Actor string

const (
	ActorAdmin   Actor = "admin"
	ActorPayment Actor = "payment"
)

var statusTransitions = map[OrderStatus]map[OrderStatus][]Actor{
	OrderStatusPending: {
		OrderStatusProcessing: {ActorPayment, ActorAdmin},
		OrderStatusCancelled:  {ActorAdmin},
		OrderStatusUnpaid:     {ActorAdmin},
	},
	OrderStatusUnpaid: {
		OrderStatusPending:    {ActorPayment},
		OrderStatusProcessing: {ActorPayment, ActorAdmin},
		OrderStatusCancelled:  {ActorAdmin},
	},
	OrderStatusProcessing: {
		OrderStatusCompleted: {ActorAdmin},
		OrderStatusCancelled: {ActorAdmin},
	},
}

// CanTransition reports whether actor may move an order from one status to another.
func CanTransition(from OrderStatus, to OrderStatus, actor Actor) bool {
	for _, allowed := range statusTransitions[from][to] {
		if allowed == actor {
			return true
		}
	}
	return false
}

// sourcesFor lists the statuses from which actor may reach target.
func sourcesFor(target OrderStatus, actor Actor) []OrderStatus {
	sources := make([]OrderStatus, 0, len(statusTransitions))
	for _, from := range AllOrderStatuses {
		if CanTransition(from, target, actor) {
			sources = append(sources, from)
		}
	}
	return sources
}

var referencePattern = regexp.MustCompile(`^EM-\d+-[A-Z0-9]{5}$`)

// NewOrderReference formats a human-readable order reference.
func NewOrderReference(at time.Time, suffix string) (string, error) {
	reference := fmt.Sprintf("%s-%d-%s", referencePrefix, at.UnixMilli(), strings.ToUpper(suffix))
	if !referencePattern.MatchString(reference) {
		return "", fmt.Errorf("%w: malformed order reference %q", ErrValidation, reference)
	}
	return reference, nil
}

// IsOrderReference reports whether raw has the EM-<ms>-<suffix> shape.
func IsOrderReference(raw string) bool {
	return referencePattern.MatchString(raw)
}

// RandomReferenceSuffix returns five uppercase base36 characters.
func RandomReferenceSuffix() string {
	alphabetSize := big.NewInt(int64(len(referenceAlphabet)))
	var builder strings.Builder
	builder.Grow(referenceSuffixLength)
	for builder.Len() < referenceSuffixLength {
		index, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			index = big.NewInt(time.Now().UnixNano() % alphabetSize.Int64())
		}
		builder.WriteByte(referenceAlphabet[index.Int64()])
	}
	return builder.String()
}

// NormalizeVIN uppercases a VIN and strips separators.
func NormalizeVIN(raw string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "\t", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(raw)))
}

// NormalizeRegistration uppercases a French registration number.
func NormalizeRegistration(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// Profile is the application-side record of an authenticated identity.
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	City       string    `json:"city,omitempty"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Vehicle is a shared reference record.
type Vehicle struct {
	ID                 string    `json:"id"`
	VIN                string    `json:"vin,omitempty"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	Make               string    `json:"make,omitempty"`
	Model              string    `json:"model,omitempty"`
	Year               int       `json:"year,omitempty"`
	FuelType           string    `json:"fuel_type,omitempty"`
	Engine             string    `json:"engine,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Order is one customer request for an administrative service.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	VehicleID       string          `json:"vehicle_id,omitempty"`
	Type            OrderType       `json:"type"`
	Status          OrderStatus     `json:"status"`
	Reference       string          `json:"reference"`
	Price           decimal.Decimal `json:"price"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Vehicle         *Vehicle        `json:"vehicle,omitempty"`
}

// OrderSummary is the projection returned on creation.
type OrderSummary struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Status    OrderStatus     `json:"status"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Summary projects an order.
func (order Order) Summary() OrderSummary {
	return OrderSummary{
		ID:        order.ID,
		Reference: order.Reference,
		Status:    order.Status,
		Price:     order.Price,
		CreatedAt: order.CreatedAt,
	}
}

// AdminOrder is an order joined with its owner.
type AdminOrder struct {
	Order
	Owner *Profile `json:"owner,omitempty"`
}

// Document is the metadata row of an uploaded file.
type Document struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Name      string    `json:"name"`
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentListing is a document joined with its order and owner summary.
type DocumentListing struct {
	Document
	OrderReference string `json:"order_reference,omitempty"`
	OwnerID        string `json:"owner_id,omitempty"`
	OwnerEmail     string `json:"owner_email,omitempty"`
}

// PaymentStatus mirrors the gateway-side checkout status.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
)

// Payment is the local mirror of a gateway checkout or intent.
type Payment struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	CheckoutID string          `json:"checkout_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     PaymentStatus   `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Page describes an offset window.
type Page struct {
	Number int `json:"page"`
	Limit  int `json:"limit"`
}

// NewPage clamps page and limit to sane bounds.
func NewPage(number int, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

// Offset returns the row offset of the page.
func (page Page) Offset() int {
	return (page.Number - 1) * page.Limit
}
