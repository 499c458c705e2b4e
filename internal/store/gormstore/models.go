package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile represents the profiles table. The id is the session subject.
type Profile struct {
	ID         string    `gorm:"primaryKey"`
	Email      string    `gorm:"not null;index:idx_profiles_email"`
	FirstName  string    `gorm:"not null;default:''"`
	LastName   string    `gorm:"not null;default:''"`
	Phone      string    `gorm:"not null;default:''"`
	Address    string    `gorm:"not null;default:''"`
	PostalCode string    `gorm:"not null;default:''"`
	City       string    `gorm:"not null;default:''"`
	Role       string    `gorm:"not null;default:'USER'"`
	CreatedAt  time.Time `gorm:"not null;index:idx_profiles_created"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Profile) TableName() string { return "profiles" }

// Vehicle mirrors the vehicles table. A VIN identifies at most one row.
type Vehicle struct {
	ID                 string    `gorm:"type:uuid;primaryKey"`
	VIN                *string   `gorm:"uniqueIndex:uniq_vehicles_vin"`
	RegistrationNumber *string   `gorm:"index:idx_vehicles_registration"`
	Make               string    `gorm:"not null;default:''"`
	Model              string    `gorm:"not null;default:''"`
	Year               *int      `gorm:""`
	FuelType           string    `gorm:"not null;default:''"`
	Engine             string    `gorm:"not null;default:''"`
	CreatedAt          time.Time `gorm:"not null"`
}

func (Vehicle) TableName() string { return "vehicles" }

func (vehicle *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}
	return nil
}

// Order mirrors the orders table.
type Order struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	UserID          string          `gorm:"not null;index:idx_orders_user_created,priority:1"`
	VehicleID       *string         `gorm:"type:uuid;index:idx_orders_vehicle"`
	Type            string          `gorm:"not null"`
	Status          string          `gorm:"not null;index:idx_orders_status"`
	Reference       string          `gorm:"not null;uniqueIndex:uniq_orders_reference"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Metadata        datatypes.JSON  `gorm:"type:jsonb;not null"`
	PaymentIntentID *string         `gorm:""`
	CreatedAt       time.Time       `gorm:"not null;index:idx_orders_user_created,priority:2"`
	UpdatedAt       time.Time       `gorm:"not null"`

	Owner   *Profile `gorm:"foreignKey:UserID;references:ID"`
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID;references:ID"`
}

func (Order) TableName() string { return "orders" }

func (order *Order) BeforeCreate(tx *gorm.DB) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return nil
}

// Document mirrors the documents table.
type Document struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	OrderID   string    `gorm:"type:uuid;not null;index:idx_documents_order_created,priority:1"`
	Name      string    `gorm:"not null"`
	FileURL   string    `gorm:"not null"`
	FileType  string    `gorm:"not null;default:''"`
	FileSize  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_documents_order_created,priority:2"`

	Order *Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Document) TableName() string { return "documents" }

func (document *Document) BeforeCreate(tx *gorm.DB) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	return nil
}

// Payment mirrors the payments table, one row per gateway checkout.
type Payment struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	OrderID    string          `gorm:"type:uuid;not null;index:idx_payments_order_created,priority:1"`
	CheckoutID string          `gorm:"not null;uniqueIndex:uniq_payments_checkout"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Currency   string          `gorm:"not null"`
	Status     string          `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_payments_order_created,priority:2"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

func (payment *Payment) BeforeCreate(tx *gorm.DB) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	return nil
}

// Models lists the tables in dependency order for AutoMigrate.
func Models() []any {
	return []any{&Profile{}, &Vehicle{}, &Order{}, &Document{}, &Payment{}}
}
