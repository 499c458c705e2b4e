package portal

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ContactUpdate carries the self-editable profile fields. Nil fields are left untouched.
type ContactUpdate struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Address    *string `json:"address" validate:"omitempty,max=255"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=10"`
	City       *string `json:"city" validate:"omitempty,max=100"`
}

// AdminOrderQuery filters the back-office order listing.
type AdminOrderQuery struct {
	Status OrderStatus
	Page   Page
}

// ProfileStore persists profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, profileID string) (Profile, error)
	CreateProfileIfMissing(ctx context.Context, profile Profile) (Profile, error)
	UpdateProfileContact(ctx context.Context, profileID string, update ContactUpdate, at time.Time) (Profile, error)
	UpdateProfileRole(ctx context.Context, profileID string, role Role, at time.Time) error
	ListProfiles(ctx context.Context, page Page) ([]Profile, int64, error)
	CountProfiles(ctx context.Context) (int64, error)
}

// VehicleStore persists vehicles.
type VehicleStore interface {
	// UpsertVehicleByVIN inserts the vehicle or returns the row already holding its VIN untouched.
	UpsertVehicleByVIN(ctx context.Context, vehicle Vehicle) (Vehicle, error)
	InsertVehicle(ctx context.Context, vehicle Vehicle) (Vehicle, error)
}

// OrderStore persists orders.
type OrderStore interface {
	InsertOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetOrderForUser(ctx context.Context, orderID string, userID string) (Order, error)
	ListOrdersForUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateOrderStatus moves the order to `to` only while its status is one of `from`.
	UpdateOrderStatus(ctx context.Context, orderID string, from []OrderStatus, to OrderStatus, at time.Time) error
	SetOrderPaymentIntent(ctx context.Context, orderID string, intentID string, forcePending bool, at time.Time) error
	ListAdminOrders(ctx context.Context, query AdminOrderQuery) ([]AdminOrder, int64, error)
	ListOrdersUnjoined(ctx context.Context, query AdminOrderQuery) ([]Order, int64, error)
	CountOrdersByStatus(ctx context.Context) (map[OrderStatus]int64, error)
	SumOrderRevenue(ctx context.Context, statuses []OrderStatus) (decimal.Decimal, error)
}

// DocumentStore persists document metadata rows.
type DocumentStore interface {
	InsertDocument(ctx context.Context, document Document) error
	GetDocument(ctx context.Context, documentID string) (Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ListDocumentListings(ctx context.Context, orderID string, page Page) ([]DocumentListing, int64, error)
	ListDocumentsForOrder(ctx context.Context, orderID string) ([]Document, error)
	CountDocuments(ctx context.Context) (int64, error)
}

// PaymentStore persists the local payment mirror.
type PaymentStore interface {
	InsertPayment(ctx context.Context, payment Payment) error
	UpdatePaymentStatus(ctx context.Context, checkoutID string, status PaymentStatus, at time.Time) error
	LatestPayment(ctx context.Context, orderID string) (Payment, error)
}

// Store is the persistence contract used by Service.
type Store interface {
	ProfileStore
	VehicleStore
	OrderStore
	DocumentStore
	PaymentStore
}

// BlobStore is the object storage backing uploaded documents.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// URLFetcher retrieves a blob through its public URL.
type URLFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
