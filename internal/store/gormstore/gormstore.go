package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMetadataJSON     = "{}"
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	errorOperationStore     = "store"
	errorSubjectProfile     = "profile"
	errorSubjectVehicle     = "vehicle"
	errorSubjectOrder       = "order"
	errorSubjectDocument    = "document"
	errorSubjectPayment     = "payment"
	errorSubjectStats       = "stats"
	errorCodeCount          = "count"
	errorCodeCreate         = "create"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeSum            = "sum"
	errorCodeUpdate         = "update"
	errorCodeUpdateStatus   = "update_status"
	errorCodeUpsert         = "upsert"
	orderNewestFirst        = "created_at DESC, id"
	columnUpdatedAt         = "updated_at"
	columnStatus            = "status"
	columnPaymentIntentID   = "payment_intent_id"
	columnRole              = "role"
	columnVIN               = "vin"
	columnProfileID         = "id"
	whereID                 = "id = ?"
	whereOrderID            = "order_id = ?"
	constraintVehicleVIN    = "uniq_vehicles_vin"
	constraintPaymentUnique = "uniq_payments_checkout"
)

// Store implements portal.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (store *Store) GetProfile(ctx context.Context, profileID string) (portal.Profile, error) {
	var model Profile
	err := store.db.WithContext(ctx).Where(whereID, profileID).Take(&model).Error
	if err != nil {
		return portal.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeGet, translateNotFound(err, portal.ErrNotFound))
	}
	return mapProfile(model)
}

func (store *Store) CreateProfileIfMissing(ctx context.Context, profile portal.Profile) (portal.Profile, error) {
	model := Profile{
		ID:        profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      profile.Role.String(),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: columnProfileID}}, DoNothing: true}).
		Create(&model).Error
	if err != nil {
		return portal.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeCreate, err)
	}
	return store.GetProfile(ctx, profile.ID)
}

func (store *Store) UpdateProfileContact(ctx context.Context, profileID string, update portal.ContactUpdate, at time.Time) (portal.Profile, error) {
	assignments := map[string]any{columnUpdatedAt: at}
	for column, value := range map[string]*string{
		"first_name":  update.FirstName,
		"last_name":   update.LastName,
		"phone":       update.Phone,
		"address":     update.Address,
		"postal_code": update.PostalCode,
		"city":        update.City,
	} {
		if value != nil {
			assignments[column] = *value
		}
	}
	result := store.db.WithContext(ctx).Model(&Profile{}).Where(whereID, profileID).Updates(assignments)
	if result.Error != nil {
		return portal.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return portal.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeUpdate, portal.ErrNotFound)
	}
	return store.GetProfile(ctx, profileID)
}

func (store *Store) UpdateProfileRole(ctx context.Context, profileID string, role portal.Role, at time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Profile{}).
		Where(whereID, profileID).
		Updates(map[string]any{columnRole: role.String(), columnUpdatedAt: at})
	if result.Error != nil {
		return wrapStoreError(errorSubjectProfile, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectProfile, errorCodeUpdate, portal.ErrNotFound)
	}
	return nil
}

func (store *Store) ListProfiles(ctx context.Context, page portal.Page) ([]portal.Profile, int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&Profile{}).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectProfile, errorCodeCount, err)
	}
	var rows []Profile
	err := store.db.WithContext(ctx).
		Order(orderNewestFirst).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectProfile, errorCodeList, err)
	}
	profiles := make([]portal.Profile, 0, len(rows))
	for _, row := range rows {
		profile, err := mapProfile(row)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, total, nil
}

func (store *Store) CountProfiles(ctx context.Context) (int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&Profile{}).Count(&total).Error; err != nil {
		return 0, wrapStoreError(errorSubjectProfile, errorCodeCount, err)
	}
	return total, nil
}

func (store *Store) UpsertVehicleByVIN(ctx context.Context, vehicle portal.Vehicle) (portal.Vehicle, error) {
	model := vehicleModel(vehicle)
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: columnVIN}}, DoNothing: true}).
		Create(&model).Error
	if err != nil && !isUniqueViolation(err, constraintVehicleVIN) {
		return portal.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeUpsert, err)
	}
	var stored Vehicle
	if err := store.db.WithContext(ctx).Where("vin = ?", vehicle.VIN).Take(&stored).Error; err != nil {
		return portal.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, translateNotFound(err, portal.ErrNotFound))
	}
	return mapVehicle(stored), nil
}

func (store *Store) InsertVehicle(ctx context.Context, vehicle portal.Vehicle) (portal.Vehicle, error) {
	model := vehicleModel(vehicle)
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return portal.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeInsert, err)
	}
	return mapVehicle(model), nil
}

func (store *Store) InsertOrder(ctx context.Context, order portal.Order) error {
	metadata, err := metadataJSON(order.Metadata)
	if err != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
	}
	model := Order{
		ID:              order.ID,
		UserID:          order.UserID,
		VehicleID:       optionalString(order.VehicleID),
		Type:            string(order.Type),
		Status:          order.Status.String(),
		Reference:       order.Reference,
		Price:           order.Price,
		Metadata:        metadata,
		PaymentIntentID: optionalString(order.PaymentIntentID),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	err = store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error
	if isUniqueViolation(err, "") {
		return wrapStoreError(errorSubjectOrder, errorCodeDuplicate, err)
	}
	if err != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetOrder(ctx context.Context, orderID string) (portal.Order, error) {
	return takeOrder(store.db.WithContext(ctx).Where(whereID, orderID))
}

func (store *Store) GetOrderForUser(ctx context.Context, orderID string, userID string) (portal.Order, error) {
	return takeOrder(store.db.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID))
}

func takeOrder(query *gorm.DB) (portal.Order, error) {
	var model Order
	if err := query.Preload("Vehicle").Take(&model).Error; err != nil {
		return portal.Order{}, wrapStoreError(errorSubjectOrder, errorCodeGet, translateNotFound(err, portal.ErrNotFound))
	}
	return mapOrder(model)
}

func (store *Store) ListOrdersForUser(ctx context.Context, userID string) ([]portal.Order, error) {
	var rows []Order
	err := store.db.WithContext(ctx).
		Preload("Vehicle").
		Where("user_id = ?", userID).
		Order(orderNewestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectOrder, errorCodeList, err)
	}
	return mapOrders(rows)
}

func (store *Store) UpdateOrderStatus(ctx context.Context, orderID string, from []portal.OrderStatus, to portal.OrderStatus, at time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ? AND status IN ?", orderID, statusStrings(from)).
		Updates(map[string]any{columnStatus: to.String(), columnUpdatedAt: at})
	if result.Error != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var existing int64
	if err := store.db.WithContext(ctx).Model(&Order{}).Where(whereID, orderID).Count(&existing).Error; err != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, err)
	}
	if existing == 0 {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, portal.ErrNotFound)
	}
	return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, portal.ErrStatusConflict)
}

func (store *Store) SetOrderPaymentIntent(ctx context.Context, orderID string, intentID string, forcePending bool, at time.Time) error {
	assignments := map[string]any{columnPaymentIntentID: intentID, columnUpdatedAt: at}
	if forcePending {
		assignments[columnStatus] = portal.OrderStatusPending.String()
	}
	result := store.db.WithContext(ctx).Model(&Order{}).Where(whereID, orderID).Updates(assignments)
	if result.Error != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdate, portal.ErrNotFound)
	}
	return nil
}

func (store *Store) adminOrderQuery(ctx context.Context, query portal.AdminOrderQuery) *gorm.DB {
	statement := store.db.WithContext(ctx).Model(&Order{})
	if query.Status != "" {
		statement = statement.Where("status = ?", query.Status.String())
	}
	return statement
}

func (store *Store) ListAdminOrders(ctx context.Context, query portal.AdminOrderQuery) ([]portal.AdminOrder, int64, error) {
	var total int64
	if err := store.adminOrderQuery(ctx, query).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectOrder, errorCodeCount, err)
	}
	var rows []Order
	err := store.adminOrderQuery(ctx, query).
		Preload("Owner").
		Preload("Vehicle").
		Order(orderNewestFirst).
		Offset(query.Page.Offset()).
		Limit(query.Page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectOrder, errorCodeList, err)
	}
	orders := make([]portal.AdminOrder, 0, len(rows))
	for _, row := range rows {
		order, err := mapOrder(row)
		if err != nil {
			return nil, 0, err
		}
		adminOrder := portal.AdminOrder{Order: order}
		if row.Owner != nil {
			owner, err := mapProfile(*row.Owner)
			if err != nil {
				return nil, 0, err
			}
			adminOrder.Owner = &owner
		}
		orders = append(orders, adminOrder)
	}
	return orders, total, nil
}

func (store *Store) ListOrdersUnjoined(ctx context.Context, query portal.AdminOrderQuery) ([]portal.Order, int64, error) {
	var total int64
	if err := store.adminOrderQuery(ctx, query).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectOrder, errorCodeCount, err)
	}
	var rows []Order
	err := store.adminOrderQuery(ctx, query).
		Order(orderNewestFirst).
		Offset(query.Page.Offset()).
		Limit(query.Page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectOrder, errorCodeList, err)
	}
	orders, err := mapOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (store *Store) CountOrdersByStatus(ctx context.Context) (map[portal.OrderStatus]int64, error) {
	var rows []statusCount
	err := store.db.WithContext(ctx).
		Model(&Order{}).
		Select("status, count(*) as total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectStats, errorCodeCount, err)
	}
	counts := make(map[portal.OrderStatus]int64, len(rows))
	for _, row := range rows {
		status, err := portal.ParseOrderStatus(row.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		counts[status] = row.Total
	}
	return counts, nil
}

func (store *Store) SumOrderRevenue(ctx context.Context, statuses []portal.OrderStatus) (decimal.Decimal, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&Order{}).
		Select("coalesce(sum(price),0) as total").
		Where("status IN ?", statusStrings(statuses)).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, wrapStoreError(errorSubjectStats, errorCodeSum, err)
	}
	return sum.Total.Round(2), nil
}

func (store *Store) InsertDocument(ctx context.Context, document portal.Document) error {
	model := Document{
		ID:        document.ID,
		OrderID:   document.OrderID,
		Name:      document.Name,
		FileURL:   document.FileURL,
		FileType:  document.FileType,
		FileSize:  document.FileSize,
		CreatedAt: document.CreatedAt,
	}
	if err := store.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectDocument, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetDocument(ctx context.Context, documentID string) (portal.Document, error) {
	var model Document
	if err := store.db.WithContext(ctx).Where(whereID, documentID).Take(&model).Error; err != nil {
		return portal.Document{}, wrapStoreError(errorSubjectDocument, errorCodeGet, translateNotFound(err, portal.ErrNotFound))
	}
	return mapDocument(model), nil
}

func (store *Store) DeleteDocument(ctx context.Context, documentID string) error {
	result := store.db.WithContext(ctx).Where(whereID, documentID).Delete(&Document{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectDocument, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectDocument, errorCodeDelete, portal.ErrNotFound)
	}
	return nil
}

func (store *Store) ListDocumentListings(ctx context.Context, orderID string, page portal.Page) ([]portal.DocumentListing, int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&Document{}).Where(whereOrderID, orderID).Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectDocument, errorCodeCount, err)
	}
	var rows []Document
	err := store.db.WithContext(ctx).
		Preload("Order.Owner").
		Where(whereOrderID, orderID).
		Order(orderNewestFirst).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectDocument, errorCodeList, err)
	}
	listings := make([]portal.DocumentListing, 0, len(rows))
	for _, row := range rows {
		listing := portal.DocumentListing{Document: mapDocument(row)}
		if row.Order != nil {
			listing.OrderReference = row.Order.Reference
			listing.OwnerID = row.Order.UserID
			if row.Order.Owner != nil {
				listing.OwnerEmail = row.Order.Owner.Email
			}
		}
		listings = append(listings, listing)
	}
	return listings, total, nil
}

func (store *Store) ListDocumentsForOrder(ctx context.Context, orderID string) ([]portal.Document, error) {
	var rows []Document
	err := store.db.WithContext(ctx).
		Where(whereOrderID, orderID).
		Order(orderNewestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectDocument, errorCodeList, err)
	}
	documents := make([]portal.Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, mapDocument(row))
	}
	return documents, nil
}

func (store *Store) CountDocuments(ctx context.Context) (int64, error) {
	var total int64
	if err := store.db.WithContext(ctx).Model(&Document{}).Count(&total).Error; err != nil {
		return 0, wrapStoreError(errorSubjectDocument, errorCodeCount, err)
	}
	return total, nil
}

// InsertPayment records a checkout once; a repeated checkout id is ignored.
func (store *Store) InsertPayment(ctx context.Context, payment portal.Payment) error {
	model := Payment{
		ID:         payment.ID,
		OrderID:    payment.OrderID,
		CheckoutID: payment.CheckoutID,
		Amount:     payment.Amount,
		Currency:   payment.Currency,
		Status:     string(payment.Status),
		CreatedAt:  payment.CreatedAt,
		UpdatedAt:  payment.UpdatedAt,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintPaymentUnique) {
		return nil
	}
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) UpdatePaymentStatus(ctx context.Context, checkoutID string, status portal.PaymentStatus, at time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Payment{}).
		Where("checkout_id = ?", checkoutID).
		Updates(map[string]any{columnStatus: string(status), columnUpdatedAt: at})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, portal.ErrPaymentNotFound)
	}
	return nil
}

func (store *Store) LatestPayment(ctx context.Context, orderID string) (portal.Payment, error) {
	var model Payment
	err := store.db.WithContext(ctx).
		Where(whereOrderID, orderID).
		Order(orderNewestFirst).
		Take(&model).Error
	if err != nil {
		return portal.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, translateNotFound(err, portal.ErrPaymentNotFound))
	}
	return portal.Payment{
		ID:         model.ID,
		OrderID:    model.OrderID,
		CheckoutID: model.CheckoutID,
		Amount:     model.Amount,
		Currency:   model.Currency,
		Status:     portal.PaymentStatus(model.Status),
		CreatedAt:  model.CreatedAt.UTC(),
		UpdatedAt:  model.UpdatedAt.UTC(),
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return portal.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total decimal.Decimal
}

type statusCount struct {
	Status string
	Total  int64
}

func translateNotFound(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func mapProfile(row Profile) (portal.Profile, error) {
	role, err := portal.ParseRole(row.Role)
	if err != nil {
		return portal.Profile{}, wrapStoreError(errorSubjectProfile, errorCodeInvalid, err)
	}
	return portal.Profile{
		ID:         row.ID,
		Email:      row.Email,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Phone:      row.Phone,
		Address:    row.Address,
		PostalCode: row.PostalCode,
		City:       row.City,
		Role:       role,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}, nil
}

func vehicleModel(vehicle portal.Vehicle) Vehicle {
	var year *int
	if vehicle.Year != 0 {
		value := vehicle.Year
		year = &value
	}
	return Vehicle{
		ID:                 vehicle.ID,
		VIN:                optionalString(vehicle.VIN),
		RegistrationNumber: optionalString(vehicle.RegistrationNumber),
		Make:               vehicle.Make,
		Model:              vehicle.Model,
		Year:               year,
		FuelType:           vehicle.FuelType,
		Engine:             vehicle.Engine,
		CreatedAt:          vehicle.CreatedAt,
	}
}

func mapVehicle(row Vehicle) portal.Vehicle {
	vehicle := portal.Vehicle{
		ID:                 row.ID,
		VIN:                valueOrEmpty(row.VIN),
		RegistrationNumber: valueOrEmpty(row.RegistrationNumber),
		Make:               row.Make,
		Model:              row.Model,
		FuelType:           row.FuelType,
		Engine:             row.Engine,
		CreatedAt:          row.CreatedAt.UTC(),
	}
	if row.Year != nil {
		vehicle.Year = *row.Year
	}
	return vehicle
}

func mapOrder(row Order) (portal.Order, error) {
	status, err := portal.ParseOrderStatus(row.Status)
	if err != nil {
		return portal.Order{}, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
	}
	orderType, err := portal.ParseOrderType(row.Type)
	if err != nil {
		return portal.Order{}, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
	}
	var metadata map[string]any
	if len(row.Metadata) > 0 && strings.TrimSpace(string(row.Metadata)) != defaultMetadataJSON {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return portal.Order{}, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
		}
	}
	order := portal.Order{
		ID:              row.ID,
		UserID:          row.UserID,
		VehicleID:       valueOrEmpty(row.VehicleID),
		Type:            orderType,
		Status:          status,
		Reference:       row.Reference,
		Price:           row.Price,
		Metadata:        metadata,
		PaymentIntentID: valueOrEmpty(row.PaymentIntentID),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.Vehicle != nil {
		vehicle := mapVehicle(*row.Vehicle)
		order.Vehicle = &vehicle
	}
	return order, nil
}

func mapOrders(rows []Order) ([]portal.Order, error) {
	orders := make([]portal.Order, 0, len(rows))
	for _, row := range rows {
		order, err := mapOrder(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func mapDocument(row Document) portal.Document {
	return portal.Document{
		ID:        row.ID,
		OrderID:   row.OrderID,
		Name:      row.Name,
		FileURL:   row.FileURL,
		FileType:  row.FileType,
		FileSize:  row.FileSize,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func metadataJSON(metadata map[string]any) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return datatypes.JSON([]byte(defaultMetadataJSON)), nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func statusStrings(statuses []portal.OrderStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, status.String())
	}
	return values
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// isUniqueViolation reports a unique constraint failure. An empty constraint matches any.
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
