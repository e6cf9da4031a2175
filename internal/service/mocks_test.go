package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/store"
)

// mockStore implements Store on in-memory maps. Error fields force failures
// on specific operations.
type mockStore struct {
	users      map[int64]*models.User
	products   map[int64]models.Product
	variants   map[int64]models.ProductVariant
	categories map[int64]models.Category
	sessions   map[string]*models.CartSession
	items      map[int64]*models.CartItem
	orders     map[int64]*models.Order
	orderItems map[int64][]models.OrderItem

	nextID int64

	convertParams *store.ConvertCartParams // captures the last ConvertCart call
	convertErr    error
	statusUpdates []string
	messageIDs    map[int64]string
	createItemErr error
	getSessionErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[int64]*models.User),
		products:   make(map[int64]models.Product),
		variants:   make(map[int64]models.ProductVariant),
		categories: make(map[int64]models.Category),
		sessions:   make(map[string]*models.CartSession),
		items:      make(map[int64]*models.CartItem),
		orders:     make(map[int64]*models.Order),
		orderItems: make(map[int64][]models.OrderItem),
		messageIDs: make(map[int64]string),
		nextID:     100,
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	copy := *user
	return &copy, nil
}

func (m *mockStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return &product, nil
}

func (m *mockStore) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (m *mockStore) GetVariantByID(_ context.Context, id int64) (*models.ProductVariant, error) {
	variant, ok := m.variants[id]
	if !ok {
		return nil, fmt.Errorf("variant %d: %w", id, store.ErrNotFound)
	}
	return &variant, nil
}

func (m *mockStore) GetVariantsByIDs(_ context.Context, ids []int64) ([]models.ProductVariant, error) {
	out := make([]models.ProductVariant, 0, len(ids))
	for _, id := range ids {
		if variant, ok := m.variants[id]; ok {
			out = append(out, variant)
		}
	}
	return out, nil
}

func (m *mockStore) GetCategoriesByIDs(_ context.Context, ids []int64) ([]models.Category, error) {
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if category, ok := m.categories[id]; ok {
			out = append(out, category)
		}
	}
	return out, nil
}

func (m *mockStore) GetCartSessionByToken(_ context.Context, token string) (*models.CartSession, error) {
	if m.getSessionErr != nil {
		return nil, m.getSessionErr
	}
	session, ok := m.sessions[token]
	if !ok || session.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("cart session: %w", store.ErrNotFound)
	}
	copy := *session
	return &copy, nil
}

func (m *mockStore) GetCartSessionByClientID(_ context.Context, clientID int64) (*models.CartSession, error) {
	for _, session := range m.sessions {
		if session.ClientID != nil && *session.ClientID == clientID && session.ExpiresAt.After(time.Now()) {
			copy := *session
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("cart session: %w", store.ErrNotFound)
}

func (m *mockStore) CreateCartSession(_ context.Context, session *models.CartSession) error {
	session.ID = m.id()
	session.CreatedAt = time.Now()
	copy := *session
	m.sessions[session.SessionToken] = &copy
	return nil
}

func (m *mockStore) LinkCartSessionClient(_ context.Context, sessionID, clientID int64) error {
	for _, session := range m.sessions {
		if session.ID == sessionID {
			session.ClientID = &clientID
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockStore) GetCartItems(_ context.Context, sessionID int64) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range m.items {
		if item.CartSessionID == sessionID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) GetCartItemByID(_ context.Context, itemID int64) (*models.CartItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("cart item %d: %w", itemID, store.ErrNotFound)
	}
	copy := *item
	return &copy, nil
}

func (m *mockStore) FindCartItem(_ context.Context, sessionID, productID int64, variantID *int64) (*models.CartItem, error) {
	for _, item := range m.items {
		if item.CartSessionID != sessionID || item.ProductID != productID {
			continue
		}
		if (item.ProductVariantID == nil) != (variantID == nil) {
			continue
		}
		if variantID != nil && *item.ProductVariantID != *variantID {
			continue
		}
		copy := *item
		return &copy, nil
	}
	return nil, fmt.Errorf("cart item: %w", store.ErrNotFound)
}

func (m *mockStore) CreateCartItem(_ context.Context, item *models.CartItem) error {
	if m.createItemErr != nil {
		return m.createItemErr
	}
	item.ID = m.id()
	item.CreatedAt = time.Now()
	copy := *item
	m.items[item.ID] = &copy
	return nil
}

func (m *mockStore) UpdateCartItemQuantity(_ context.Context, itemID int64, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return store.ErrNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *mockStore) DeleteCartItem(_ context.Context, itemID int64) error {
	delete(m.items, itemID)
	return nil
}

func (m *mockStore) ClearCartItems(_ context.Context, sessionID int64) error {
	for id, item := range m.items {
		if item.CartSessionID == sessionID {
			delete(m.items, id)
		}
	}
	return nil
}

// ConvertCart captures its params and simulates the committed transaction:
// guest provisioning, order and item creation, cart clear.
func (m *mockStore) ConvertCart(ctx context.Context, params store.ConvertCartParams) (*models.Order, []models.OrderItem, error) {
	m.convertParams = &params
	if m.convertErr != nil {
		return nil, nil, m.convertErr
	}

	clientID := params.ClientID
	if params.Guest != nil {
		params.Guest.ID = m.id()
		copy := *params.Guest
		m.users[copy.ID] = &copy
		clientID = copy.ID
	}

	order := &models.Order{
		ID:          m.id(),
		ClientID:    clientID,
		TotalAmount: params.TotalAmount,
		Status:      models.OrderStatusPending,
		Notes:       params.Notes,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.orders[order.ID] = order

	items := make([]models.OrderItem, 0, len(params.Lines))
	for _, line := range params.Lines {
		items = append(items, models.OrderItem{
			ID:               m.id(),
			OrderID:          order.ID,
			ProductID:        line.ProductID,
			ProductVariantID: line.VariantID,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			TotalPrice:       line.UnitPrice * int64(line.Quantity),
		})
	}
	m.orderItems[order.ID] = items

	_ = m.ClearCartItems(ctx, params.SessionID)

	copy := *order
	return &copy, items, nil
}

func (m *mockStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, store.ErrNotFound)
	}
	copy := *order
	return &copy, nil
}

func (m *mockStore) GetOrdersByClientID(_ context.Context, clientID int64) ([]models.Order, error) {
	var out []models.Order
	for _, order := range m.orders {
		if order.ClientID == clientID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockStore) ListOrders(_ context.Context, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range m.orders {
		out = append(out, *order)
	}
	if offset >= len(out) {
		return []models.Order{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) CountOrders(_ context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

func (m *mockStore) CountOrdersByStatus(_ context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, order := range m.orders {
		counts[order.Status]++
	}
	return counts, nil
}

func (m *mockStore) GetOrdersTotalRevenue(_ context.Context) (int64, error) {
	var total int64
	for _, order := range m.orders {
		total += order.TotalAmount
	}
	return total, nil
}

func (m *mockStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return m.orderItems[orderID], nil
}

func (m *mockStore) UpdateOrderStatus(_ context.Context, orderID int64, status string, notes *string) error {
	order, ok := m.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	order.Status = status
	if notes != nil {
		order.Notes = *notes
	}
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *mockStore) SetOrderWhatsAppMessageID(_ context.Context, orderID int64, messageID string) error {
	order, ok := m.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	order.WhatsAppMessageID = &messageID
	m.messageIDs[orderID] = messageID
	return nil
}

// mockCache implements CartCache on a map.
type mockCache struct {
	views       map[string][]byte
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{views: make(map[string][]byte)}
}

func (m *mockCache) GetCartView(_ context.Context, token string) ([]byte, error) {
	payload, ok := m.views[token]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return payload, nil
}

func (m *mockCache) SetCartView(_ context.Context, token string, payload []byte, _ time.Duration) error {
	m.views[token] = payload
	return nil
}

func (m *mockCache) InvalidateCartView(_ context.Context, token string) error {
	delete(m.views, token)
	m.invalidated = append(m.invalidated, token)
	return nil
}

// mockPublisher captures published events.
type mockPublisher struct {
	placed        []*models.OrderPlacedEvent
	statusChanged []*models.OrderStatusChangedEvent
	err           error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.placed = append(m.placed, event)
	return nil
}

func (m *mockPublisher) PublishOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.statusChanged = append(m.statusChanged, event)
	return nil
}

// mockNotifier captures sent confirmations.
type mockNotifier struct {
	phone     string
	message   string
	messageID string
	err       error
	calls     int
}

func (m *mockNotifier) SendOrderConfirmation(_ context.Context, phone, message string) (string, error) {
	m.calls++
	m.phone = phone
	m.message = message
	if m.err != nil {
		return "", m.err
	}
	if m.messageID == "" {
		return "wamid-test", nil
	}
	return m.messageID, nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

// seedCatalog loads a small fixture catalog: a variant-less product, a
// product with a stocked variant, and one with an unlimited variant.
func seedCatalog(m *mockStore) {
	m.categories[1] = models.Category{ID: 1, Name: "Drinks", Slug: "drinks"}

	m.products[1] = models.Product{
		ID: 1, CategoryID: 1, Name: "Espresso", Slug: "espresso",
		BasePrice: int64Ptr(250), IsActive: true,
	}
	m.products[2] = models.Product{
		ID: 2, CategoryID: 1, Name: "Cold Brew", Slug: "cold-brew", IsActive: true,
	}
	m.variants[10] = models.ProductVariant{
		ID: 10, ProductID: 2, Name: "1L Bottle", SKU: "CB-1L",
		Price: 1500, StockQuantity: intPtr(5), IsActive: true,
	}
	m.variants[11] = models.ProductVariant{
		ID: 11, ProductID: 2, Name: "Glass", SKU: "CB-GL",
		Price: 400, IsActive: true,
	}
}

// seedSession creates a live cart session with the given token.
func seedSession(m *mockStore, token string, clientID *int64) *models.CartSession {
	session := &models.CartSession{
		ID:           m.id(),
		SessionToken: token,
		ClientID:     clientID,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
	}
	m.sessions[token] = session
	return session
}

// seedItem adds a cart item to a session.
func seedItem(m *mockStore, sessionID, productID int64, variantID *int64, quantity int) *models.CartItem {
	item := &models.CartItem{
		ID:               m.id(),
		CartSessionID:    sessionID,
		ProductID:        productID,
		ProductVariantID: variantID,
		Quantity:         quantity,
		CreatedAt:        time.Now(),
	}
	m.items[item.ID] = item
	return item
}
