package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bs-shop/internal/models"
	"bs-shop/internal/store"
	"bs-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService handles cart session and cart item business logic.
type CartService struct {
	store       Store
	cache       CartCache
	logger      *zap.Logger
	cartTTL     time.Duration
	cacheTTL    time.Duration
	maxQuantity int
}

// NewCartService creates a new cart service.
func NewCartService(st Store, cache CartCache, cartTTL, cacheTTL time.Duration, maxQuantity int) *CartService {
	return &CartService{
		store:       st,
		cache:       cache,
		logger:      util.GetLogger(),
		cartTTL:     cartTTL,
		cacheTTL:    cacheTTL,
		maxQuantity: maxQuantity,
	}
}

// CategoryView is the category slice exposed on cart and order lines.
type CategoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductView is the product slice exposed on cart lines.
type ProductView struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Category *CategoryView `json:"category,omitempty"`
}

// VariantView is the variant slice exposed on cart lines.
type VariantView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Price       int64  `json:"price"`
	IsAvailable bool   `json:"is_available"`
}

// CartItemView is one rendered cart line.
type CartItemView struct {
	ID         int64        `json:"id"`
	Product    ProductView  `json:"product"`
	Variant    *VariantView `json:"variant,omitempty"`
	Quantity   int          `json:"quantity"`
	UnitPrice  int64        `json:"unit_price"`
	TotalPrice int64        `json:"total_price"`
	AddedAt    time.Time    `json:"added_at"`
}

// CartSummary aggregates a cart for display.
type CartSummary struct {
	TotalItems       int        `json:"total_items"`
	TotalPrice       int64      `json:"total_price"`
	ItemsCount       int        `json:"items_count"`
	HasVariants      bool       `json:"has_variants"`
	SessionExpiresAt *time.Time `json:"session_expires_at,omitempty"`
}

// CartView is the full rendered cart.
type CartView struct {
	SessionToken string         `json:"session_id,omitempty"`
	Items        []CartItemView `json:"items"`
	Summary      CartSummary    `json:"summary"`
}

// AddItemRequest carries an add-to-cart operation.
type AddItemRequest struct {
	ProductID int64
	VariantID *int64
	Quantity  int
}

// CartMutationResult is returned by cart mutations: the touched line plus
// the refreshed summary.
type CartMutationResult struct {
	SessionToken string       `json:"session_id"`
	Item         CartItemView `json:"cart_item"`
	Summary      CartSummary  `json:"cart_summary"`
}

// RemoveItemResult describes a removed cart line.
type RemoveItemResult struct {
	ID          int64       `json:"id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Summary     CartSummary `json:"cart_summary"`
}

// GetCart renders the cart addressed by the session token or, failing that,
// the caller's linked session. A missing or expired session yields an empty
// cart, not an error. Views are served from the cache when fresh.
func (s *CartService) GetCart(ctx context.Context, token string, caller *models.User) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	session, err := s.findSession(ctx, token, caller)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &CartView{Items: []CartItemView{}, Summary: CartSummary{}}, nil
	}

	if cached, err := s.cache.GetCartView(ctx, session.SessionToken); err == nil {
		var view CartView
		if err := json.Unmarshal(cached, &view); err == nil {
			util.CartCacheHits.Inc()
			return &view, nil
		}
	}
	util.CartCacheMisses.Inc()

	view, err := s.renderCart(ctx, session)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(view); err == nil {
		if err := s.cache.SetCartView(ctx, session.SessionToken, payload, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache cart view", zap.Error(err))
		}
	}

	return view, nil
}

// AddItem adds a product (or variant) line to the cart, creating the session
// on first use. Adding an existing (product, variant) combination increments
// its quantity up to the per-line limit.
func (s *CartService) AddItem(ctx context.Context, token string, caller *models.User, req AddItemRequest) (*CartMutationResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	var variant *models.ProductVariant
	if req.VariantID != nil {
		variant, err = s.store.GetVariantByID(ctx, *req.VariantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrVariantNotFound
			}
			return nil, err
		}
		if variant.ProductID != product.ID {
			return nil, ErrVariantMismatch
		}
		if !variant.IsActive {
			return nil, ErrVariantInactive
		}
		if !VariantAvailable(variant, req.Quantity) {
			return nil, ErrVariantOutOfStock
		}
	}

	session, err := s.findOrCreateSession(ctx, token, caller)
	if err != nil {
		return nil, err
	}

	var item *models.CartItem
	existing, err := s.store.FindCartItem(ctx, session.ID, req.ProductID, req.VariantID)
	switch {
	case err == nil:
		newQuantity := existing.Quantity + req.Quantity
		if newQuantity > s.maxQuantity {
			return nil, ErrQuantityLimit
		}
		if variant != nil && !VariantAvailable(variant, newQuantity) {
			return nil, ErrVariantOutOfStock
		}
		if err := s.store.UpdateCartItemQuantity(ctx, existing.ID, newQuantity); err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
		existing.Quantity = newQuantity
		item = existing
	case errors.Is(err, store.ErrNotFound):
		item = &models.CartItem{
			CartSessionID:    session.ID,
			ProductID:        req.ProductID,
			ProductVariantID: req.VariantID,
			Quantity:         req.Quantity,
		}
		if err := s.store.CreateCartItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to create cart item: %w", err)
		}
	default:
		return nil, err
	}

	s.invalidate(ctx, session.SessionToken)
	util.CartItemsAddedTotal.Inc()
	s.logger.Info("Cart item added",
		zap.Int64("cart_session_id", session.ID),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity", item.Quantity))

	return s.mutationResult(ctx, session, item, product, variant)
}

// UpdateItemQuantity sets the quantity of an existing cart line. The line
// must belong to the caller's session; variant lines are re-checked for
// availability at the new quantity.
func (s *CartService) UpdateItemQuantity(ctx context.Context, token string, caller *models.User, itemID int64, quantity int) (*CartMutationResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	if quantity < 1 || quantity > s.maxQuantity {
		return nil, ErrQuantityLimit
	}

	item, session, err := s.ownedItem(ctx, token, caller, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.store.GetProductByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	var variant *models.ProductVariant
	if item.ProductVariantID != nil {
		variant, err = s.store.GetVariantByID(ctx, *item.ProductVariantID)
		if err != nil {
			return nil, err
		}
		if !VariantAvailable(variant, quantity) {
			return nil, ErrVariantOutOfStock
		}
	}

	if err := s.store.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	item.Quantity = quantity

	s.invalidate(ctx, session.SessionToken)

	return s.mutationResult(ctx, session, item, product, variant)
}

// RemoveItem deletes one line of the caller's cart.
func (s *CartService) RemoveItem(ctx context.Context, token string, caller *models.User, itemID int64) (*RemoveItemResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	item, session, err := s.ownedItem(ctx, token, caller, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.store.GetProductByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}

	s.invalidate(ctx, session.SessionToken)

	summary, err := s.summarize(ctx, session)
	if err != nil {
		return nil, err
	}

	return &RemoveItemResult{
		ID:          item.ID,
		ProductName: product.Name,
		Quantity:    item.Quantity,
		Summary:     *summary,
	}, nil
}

// ClearCart removes every line of the caller's cart. Clearing a cart that
// does not exist is a no-op; the returned token is empty in that case.
func (s *CartService) ClearCart(ctx context.Context, token string, caller *models.User) (string, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	session, err := s.findSession(ctx, token, caller)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}

	if err := s.store.ClearCartItems(ctx, session.ID); err != nil {
		return "", fmt.Errorf("failed to clear cart: %w", err)
	}

	s.invalidate(ctx, session.SessionToken)

	return session.SessionToken, nil
}

// findSession resolves a live session by token first, then by the caller's
// identity. Returns nil without error when no live session exists.
func (s *CartService) findSession(ctx context.Context, token string, caller *models.User) (*models.CartSession, error) {
	if token != "" {
		session, err := s.store.GetCartSessionByToken(ctx, token)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if caller != nil {
		session, err := s.store.GetCartSessionByClientID(ctx, caller.ID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *CartService) findOrCreateSession(ctx context.Context, token string, caller *models.User) (*models.CartSession, error) {
	session, err := s.findSession(ctx, token, caller)
	if err != nil {
		return nil, err
	}
	if session != nil {
		if caller != nil && session.ClientID == nil {
			if err := s.store.LinkCartSessionClient(ctx, session.ID, caller.ID); err != nil {
				s.logger.Warn("Failed to link cart session to client",
					zap.Int64("cart_session_id", session.ID),
					zap.Error(err))
			} else {
				session.ClientID = &caller.ID
			}
		}
		return session, nil
	}

	session = &models.CartSession{
		SessionToken: uuid.New().String(),
		ExpiresAt:    time.Now().Add(s.cartTTL),
	}
	if caller != nil {
		session.ClientID = &caller.ID
	}
	if err := s.store.CreateCartSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create cart session: %w", err)
	}

	s.logger.Info("Cart session created", zap.Int64("cart_session_id", session.ID))
	return session, nil
}

func (s *CartService) ownedItem(ctx context.Context, token string, caller *models.User, itemID int64) (*models.CartItem, *models.CartSession, error) {
	item, err := s.store.GetCartItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrCartItemNotFound
		}
		return nil, nil, err
	}

	session, err := s.findSession(ctx, token, caller)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || item.CartSessionID != session.ID {
		return nil, nil, ErrCartAccessDenied
	}
	return item, session, nil
}

func (s *CartService) invalidate(ctx context.Context, sessionToken string) {
	if err := s.cache.InvalidateCartView(ctx, sessionToken); err != nil {
		s.logger.Warn("Failed to invalidate cart view cache",
			zap.String("session_token", sessionToken),
			zap.Error(err))
	}
}

func (s *CartService) renderCart(ctx context.Context, session *models.CartSession) (*CartView, error) {
	lines, err := loadCartLines(ctx, s.store, session.ID)
	if err != nil {
		return nil, err
	}

	categories := s.categoriesFor(ctx, lines)

	items := make([]CartItemView, 0, len(lines))
	summary := CartSummary{SessionExpiresAt: &session.ExpiresAt}
	for i := range lines {
		line := &lines[i]
		view := lineView(line, categories)
		items = append(items, view)

		summary.TotalItems += line.Item.Quantity
		summary.TotalPrice += line.TotalPrice()
		summary.ItemsCount++
		if line.Variant != nil {
			summary.HasVariants = true
		}
	}

	return &CartView{
		SessionToken: session.SessionToken,
		Items:        items,
		Summary:      summary,
	}, nil
}

// categoriesFor fetches the categories behind a set of cart lines. Category
// detail is display garnish; a lookup failure degrades to bare products.
func (s *CartService) categoriesFor(ctx context.Context, lines []models.CartLine) map[int64]models.Category {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool)
	for i := range lines {
		id := lines[i].Product.CategoryID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	rows, err := s.store.GetCategoriesByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load categories for cart view", zap.Error(err))
		return nil
	}
	categories := make(map[int64]models.Category, len(rows))
	for _, c := range rows {
		categories[c.ID] = c
	}
	return categories
}

func (s *CartService) summarize(ctx context.Context, session *models.CartSession) (*CartSummary, error) {
	lines, err := loadCartLines(ctx, s.store, session.ID)
	if err != nil {
		return nil, err
	}
	summary := CartSummary{SessionExpiresAt: &session.ExpiresAt}
	for i := range lines {
		line := &lines[i]
		summary.TotalItems += line.Item.Quantity
		summary.TotalPrice += line.TotalPrice()
		summary.ItemsCount++
		if line.Variant != nil {
			summary.HasVariants = true
		}
	}
	return &summary, nil
}

func (s *CartService) mutationResult(ctx context.Context, session *models.CartSession, item *models.CartItem, product *models.Product, variant *models.ProductVariant) (*CartMutationResult, error) {
	summary, err := s.summarize(ctx, session)
	if err != nil {
		return nil, err
	}

	line := models.CartLine{Item: *item, Product: *product, Variant: variant}
	categories := s.categoriesFor(ctx, []models.CartLine{line})

	return &CartMutationResult{
		SessionToken: session.SessionToken,
		Item:         lineView(&line, categories),
		Summary:      *summary,
	}, nil
}

func lineView(line *models.CartLine, categories map[int64]models.Category) CartItemView {
	view := CartItemView{
		ID: line.Item.ID,
		Product: ProductView{
			ID:   line.Product.ID,
			Name: line.Product.Name,
			Slug: line.Product.Slug,
		},
		Quantity:   line.Item.Quantity,
		UnitPrice:  line.UnitPrice(),
		TotalPrice: line.TotalPrice(),
		AddedAt:    line.Item.CreatedAt,
	}
	if category, ok := categories[line.Product.CategoryID]; ok {
		view.Product.Category = &CategoryView{ID: category.ID, Name: category.Name, Slug: category.Slug}
	}
	if line.Variant != nil {
		view.Variant = &VariantView{
			ID:          line.Variant.ID,
			Name:        line.Variant.Name,
			SKU:         line.Variant.SKU,
			Price:       line.Variant.Price,
			IsAvailable: VariantAvailable(line.Variant, line.Item.Quantity),
		}
	}
	return view
}
