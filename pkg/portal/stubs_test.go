package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedTime = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type stubStore struct {
	mu        sync.Mutex
	profiles  map[string]Profile
	vehicles  map[string]Vehicle
	orders    map[string]Order
	documents map[string]Document
	payments  []Payment
	failures  map[string]error
	calls     map[string]int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		profiles:  make(map[string]Profile),
		vehicles:  make(map[string]Vehicle),
		orders:    make(map[string]Order),
		documents: make(map[string]Document),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (store *stubStore) fail(method string, err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.failures[method] = err
}

func (store *stubStore) enter(method string) error {
	store.calls[method]++
	return store.failures[method]
}

func (store *stubStore) callCount(method string) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.calls[method]
}

func (store *stubStore) addProfile(profile Profile) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.profiles[profile.ID] = profile
}

func (store *stubStore) addOrder(order Order) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.orders[order.ID] = order
}

func (store *stubStore) addDocument(document Document) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.documents[document.ID] = document
}

func (store *stubStore) order(test *testing.T, orderID string) Order {
	test.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	order, ok := store.orders[orderID]
	if !ok {
		test.Fatalf("order %s not stored", orderID)
	}
	return order
}

func (store *stubStore) GetProfile(_ context.Context, profileID string) (Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("GetProfile"); err != nil {
		return Profile{}, err
	}
	profile, ok := store.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

func (store *stubStore) CreateProfileIfMissing(_ context.Context, profile Profile) (Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("CreateProfileIfMissing"); err != nil {
		return Profile{}, err
	}
	if existing, ok := store.profiles[profile.ID]; ok {
		return existing, nil
	}
	store.profiles[profile.ID] = profile
	return profile, nil
}

func (store *stubStore) UpdateProfileContact(_ context.Context, profileID string, update ContactUpdate, at time.Time) (Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("UpdateProfileContact"); err != nil {
		return Profile{}, err
	}
	profile, ok := store.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	apply := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}
	apply(&profile.FirstName, update.FirstName)
	apply(&profile.LastName, update.LastName)
	apply(&profile.Phone, update.Phone)
	apply(&profile.Address, update.Address)
	apply(&profile.PostalCode, update.PostalCode)
	apply(&profile.City, update.City)
	profile.UpdatedAt = at
	store.profiles[profileID] = profile
	return profile, nil
}

func (store *stubStore) UpdateProfileRole(_ context.Context, profileID string, role Role, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("UpdateProfileRole"); err != nil {
		return err
	}
	profile, ok := store.profiles[profileID]
	if !ok {
		return ErrNotFound
	}
	profile.Role = role
	profile.UpdatedAt = at
	store.profiles[profileID] = profile
	return nil
}

func (store *stubStore) ListProfiles(_ context.Context, page Page) ([]Profile, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListProfiles"); err != nil {
		return nil, 0, err
	}
	profiles := make([]Profile, 0, len(store.profiles))
	for _, profile := range store.profiles {
		profiles = append(profiles, profile)
	}
	sort.Slice(profiles, func(left, right int) bool { return profiles[left].ID < profiles[right].ID })
	return window(profiles, page), int64(len(profiles)), nil
}

func (store *stubStore) CountProfiles(_ context.Context) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("CountProfiles"); err != nil {
		return 0, err
	}
	return int64(len(store.profiles)), nil
}

func (store *stubStore) UpsertVehicleByVIN(_ context.Context, vehicle Vehicle) (Vehicle, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("UpsertVehicleByVIN"); err != nil {
		return Vehicle{}, err
	}
	for _, existing := range store.vehicles {
		if existing.VIN == vehicle.VIN {
			return existing, nil
		}
	}
	vehicle.ID = fmt.Sprintf("vehicle-%d", len(store.vehicles)+1)
	store.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (store *stubStore) InsertVehicle(_ context.Context, vehicle Vehicle) (Vehicle, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("InsertVehicle"); err != nil {
		return Vehicle{}, err
	}
	vehicle.ID = fmt.Sprintf("vehicle-%d", len(store.vehicles)+1)
	store.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (store *stubStore) InsertOrder(_ context.Context, order Order) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("InsertOrder"); err != nil {
		return err
	}
	store.orders[order.ID] = order
	return nil
}

func (store *stubStore) GetOrder(_ context.Context, orderID string) (Order, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("GetOrder"); err != nil {
		return Order{}, err
	}
	order, ok := store.orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (store *stubStore) GetOrderForUser(_ context.Context, orderID string, userID string) (Order, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("GetOrderForUser"); err != nil {
		return Order{}, err
	}
	order, ok := store.orders[orderID]
	if !ok || order.UserID != userID {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (store *stubStore) ListOrdersForUser(_ context.Context, userID string) ([]Order, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListOrdersForUser"); err != nil {
		return nil, err
	}
	orders := make([]Order, 0)
	for _, order := range store.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(left, right int) bool { return orders[left].CreatedAt.After(orders[right].CreatedAt) })
	return orders, nil
}

func (store *stubStore) UpdateOrderStatus(_ context.Context, orderID string, from []OrderStatus, to OrderStatus, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("UpdateOrderStatus"); err != nil {
		return err
	}
	order, ok := store.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	for _, source := range from {
		if order.Status == source {
			order.Status = to
			order.UpdatedAt = at
			store.orders[orderID] = order
			return nil
		}
	}
	return ErrStatusConflict
}

func (store *stubStore) SetOrderPaymentIntent(_ context.Context, orderID string, intentID string, forcePending bool, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("SetOrderPaymentIntent"); err != nil {
		return err
	}
	order, ok := store.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.PaymentIntentID = intentID
	if forcePending {
		order.Status = OrderStatusPending
	}
	order.UpdatedAt = at
	store.orders[orderID] = order
	return nil
}

func (store *stubStore) filteredOrders(query AdminOrderQuery) []Order {
	orders := make([]Order, 0, len(store.orders))
	for _, order := range store.orders {
		if query.Status == "" || order.Status == query.Status {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(left, right int) bool { return orders[left].ID < orders[right].ID })
	return orders
}

func (store *stubStore) ListAdminOrders(_ context.Context, query AdminOrderQuery) ([]AdminOrder, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListAdminOrders"); err != nil {
		return nil, 0, err
	}
	orders := store.filteredOrders(query)
	joined := make([]AdminOrder, 0, len(orders))
	for _, order := range window(orders, query.Page) {
		row := AdminOrder{Order: order}
		if owner, ok := store.profiles[order.UserID]; ok {
			row.Owner = &owner
		}
		joined = append(joined, row)
	}
	return joined, int64(len(orders)), nil
}

func (store *stubStore) ListOrdersUnjoined(_ context.Context, query AdminOrderQuery) ([]Order, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListOrdersUnjoined"); err != nil {
		return nil, 0, err
	}
	orders := store.filteredOrders(query)
	return window(orders, query.Page), int64(len(orders)), nil
}

func (store *stubStore) CountOrdersByStatus(_ context.Context) (map[OrderStatus]int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("CountOrdersByStatus"); err != nil {
		return nil, err
	}
	counts := make(map[OrderStatus]int64)
	for _, order := range store.orders {
		counts[order.Status]++
	}
	return counts, nil
}

func (store *stubStore) SumOrderRevenue(_ context.Context, statuses []OrderStatus) (decimal.Decimal, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("SumOrderRevenue"); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, order := range store.orders {
		for _, status := range statuses {
			if order.Status == status {
				total = total.Add(order.Price)
			}
		}
	}
	return total, nil
}

func (store *stubStore) InsertDocument(_ context.Context, document Document) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("InsertDocument"); err != nil {
		return err
	}
	store.documents[document.ID] = document
	return nil
}

func (store *stubStore) GetDocument(_ context.Context, documentID string) (Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("GetDocument"); err != nil {
		return Document{}, err
	}
	document, ok := store.documents[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return document, nil
}

func (store *stubStore) DeleteDocument(_ context.Context, documentID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("DeleteDocument"); err != nil {
		return err
	}
	if _, ok := store.documents[documentID]; !ok {
		return ErrNotFound
	}
	delete(store.documents, documentID)
	return nil
}

func (store *stubStore) documentsOf(orderID string) []Document {
	documents := make([]Document, 0)
	for _, document := range store.documents {
		if document.OrderID == orderID {
			documents = append(documents, document)
		}
	}
	sort.Slice(documents, func(left, right int) bool { return documents[left].ID < documents[right].ID })
	return documents
}

func (store *stubStore) ListDocumentListings(_ context.Context, orderID string, page Page) ([]DocumentListing, int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListDocumentListings"); err != nil {
		return nil, 0, err
	}
	documents := store.documentsOf(orderID)
	listings := make([]DocumentListing, 0, len(documents))
	for _, document := range window(documents, page) {
		listing := DocumentListing{Document: document}
		if order, ok := store.orders[document.OrderID]; ok {
			listing.OrderReference = order.Reference
			listing.OwnerID = order.UserID
		}
		listings = append(listings, listing)
	}
	return listings, int64(len(documents)), nil
}

func (store *stubStore) ListDocumentsForOrder(_ context.Context, orderID string) ([]Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("ListDocumentsForOrder"); err != nil {
		return nil, err
	}
	return store.documentsOf(orderID), nil
}

func (store *stubStore) CountDocuments(_ context.Context) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("CountDocuments"); err != nil {
		return 0, err
	}
	return int64(len(store.documents)), nil
}

func (store *stubStore) InsertPayment(_ context.Context, payment Payment) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("InsertPayment"); err != nil {
		return err
	}
	store.payments = append(store.payments, payment)
	return nil
}

func (store *stubStore) UpdatePaymentStatus(_ context.Context, checkoutID string, status PaymentStatus, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("UpdatePaymentStatus"); err != nil {
		return err
	}
	for index := range store.payments {
		if store.payments[index].CheckoutID == checkoutID {
			store.payments[index].Status = status
			store.payments[index].UpdatedAt = at
			return nil
		}
	}
	return ErrNotFound
}

func (store *stubStore) LatestPayment(_ context.Context, orderID string) (Payment, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.enter("LatestPayment"); err != nil {
		return Payment{}, err
	}
	for index := len(store.payments) - 1; index >= 0; index-- {
		if store.payments[index].OrderID == orderID {
			return store.payments[index], nil
		}
	}
	return Payment{}, ErrNotFound
}

func window[T any](items []T, page Page) []T {
	if page.Limit <= 0 {
		return items
	}
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type stubBlobStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	puts    int
	deletes []string
	getErr  error
	putErr  error
	delErr  error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{bucket: "documents", objects: make(map[string][]byte)}
}

func (blobs *stubBlobStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	blobs.puts++
	if blobs.putErr != nil {
		return "", blobs.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	blobs.objects[key] = data
	return blobs.publicURL(key), nil
}

func (blobs *stubBlobStore) publicURL(key string) string {
	return "https://storage.example.test/storage/v1/object/public/" + blobs.bucket + "/" + key
}

func (blobs *stubBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	if blobs.getErr != nil {
		return nil, blobs.getErr
	}
	data, ok := blobs.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return bytes.Clone(data), nil
}

func (blobs *stubBlobStore) Delete(_ context.Context, key string) error {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	blobs.deletes = append(blobs.deletes, key)
	if blobs.delErr != nil {
		return blobs.delErr
	}
	delete(blobs.objects, key)
	return nil
}

func (blobs *stubBlobStore) Bucket() string {
	return blobs.bucket
}

func (blobs *stubBlobStore) putCount() int {
	blobs.mu.Lock()
	defer blobs.mu.Unlock()
	return blobs.puts
}

type stubFetcher struct {
	mu      sync.Mutex
	bodies  map[string][]byte
	fetched []string
}

func (fetcher *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	fetcher.fetched = append(fetcher.fetched, url)
	data, ok := fetcher.bodies[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

type stubGateway struct {
	mu           sync.Mutex
	checkouts    map[string]Checkout
	createErr    error
	intentErr    error
	readFailures []error
	reads        int
	lastRequest  CheckoutRequest
	lastDeadline time.Time
	hadDeadline  bool
	nextID       int
}

func newStubGateway() *stubGateway {
	return &stubGateway{checkouts: make(map[string]Checkout)}
}

func (gateway *stubGateway) CreateCheckout(ctx context.Context, request CheckoutRequest) (Checkout, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.lastRequest = request
	gateway.lastDeadline, gateway.hadDeadline = ctx.Deadline()
	if gateway.createErr != nil {
		return Checkout{}, gateway.createErr
	}
	gateway.nextID++
	checkout := Checkout{
		ID:          fmt.Sprintf("chk-%d", gateway.nextID),
		Reference:   request.Reference,
		Status:      PaymentStatusPending,
		Amount:      request.Amount,
		Currency:    request.Currency,
		RedirectURL: fmt.Sprintf("https://pay.example.test/chk-%d", gateway.nextID),
	}
	gateway.checkouts[checkout.ID] = checkout
	return checkout, nil
}

func (gateway *stubGateway) CreateIntent(_ context.Context, request CheckoutRequest) (Intent, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.lastRequest = request
	if gateway.intentErr != nil {
		return Intent{}, gateway.intentErr
	}
	gateway.nextID++
	id := fmt.Sprintf("pi-%d", gateway.nextID)
	gateway.checkouts[id] = Checkout{ID: id, Reference: request.Reference, Status: PaymentStatusPending, Amount: request.Amount, Currency: request.Currency}
	return Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (gateway *stubGateway) GetCheckout(_ context.Context, checkoutID string) (Checkout, error) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	gateway.reads++
	if len(gateway.readFailures) > 0 {
		err := gateway.readFailures[0]
		gateway.readFailures = gateway.readFailures[1:]
		return Checkout{}, err
	}
	checkout, ok := gateway.checkouts[checkoutID]
	if !ok {
		return Checkout{}, NewGatewayStatusError(404, "checkout not found")
	}
	return checkout, nil
}

func (gateway *stubGateway) settle(checkoutID string, status PaymentStatus) {
	gateway.mu.Lock()
	defer gateway.mu.Unlock()
	checkout := gateway.checkouts[checkoutID]
	checkout.Status = status
	gateway.checkouts[checkoutID] = checkout
}

type recorderLogger struct {
	mu      sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) find(operation string, status string) []OperationLog {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	matches := make([]OperationLog, 0)
	for _, entry := range logger.entries {
		if entry.Operation == operation && (status == "" || entry.Status == status) {
			matches = append(matches, entry)
		}
	}
	return matches
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	defaults := []ServiceOption{
		WithReferenceSuffix(func() string { return "AB12C" }),
		WithReadRetry(time.Millisecond, 2),
	}
	service, err := NewService(store, func() time.Time { return fixedTime }, append(defaults, options...)...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustDecimal(test *testing.T, raw string) *decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return &value
}

func userCaller(id string) Caller {
	return Caller{ID: id, Email: id + "@example.test", Role: RoleUser}
}

func adminCaller(id string) Caller {
	return Caller{ID: id, Email: id + "@example.test", Role: RoleAdmin}
}

func superAdminCaller(id string) Caller {
	return Caller{ID: id, Email: id + "@example.test", Role: RoleSuperAdmin}
}

func pendingOrder(id string, userID string, price string) Order {
	return Order{
		ID:        id,
		UserID:    userID,
		Type:      OrderTypeCarteGrise,
		Status:    OrderStatusPending,
		Reference: "EM-1700000000000-ZZ9ZZ",
		Price:     decimal.RequireFromString(price),
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}
