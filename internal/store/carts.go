package store

import (
	"context"
	"database/sql"
	"fmt"

	"bs-shop/internal/models"
)

// GetCartSessionByToken retrieves a live (unexpired) cart session by its
// token. Expired rows are ignored, not deleted.
func (s *Store) GetCartSessionByToken(ctx context.Context, token string) (*models.CartSession, error) {
	var session models.CartSession
	err := s.db.GetContext(ctx, &session,
		"SELECT * FROM cart_sessions WHERE session_token = $1 AND expires_at > NOW()", token)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetCartSessionByClientID retrieves a live cart session linked to a client.
func (s *Store) GetCartSessionByClientID(ctx context.Context, clientID int64) (*models.CartSession, error) {
	var session models.CartSession
	err := s.db.GetContext(ctx, &session,
		"SELECT * FROM cart_sessions WHERE client_id = $1 AND expires_at > NOW() ORDER BY created_at DESC LIMIT 1", clientID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateCartSession inserts a cart session and fills in the generated fields.
func (s *Store) CreateCartSession(ctx context.Context, session *models.CartSession) error {
	query := `
		INSERT INTO cart_sessions (session_token, client_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, session, query,
		session.SessionToken, session.ClientID, session.ExpiresAt)
}

// LinkCartSessionClient attaches an owning identity to a cart session.
func (s *Store) LinkCartSessionClient(ctx context.Context, sessionID, clientID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_sessions SET client_id = $1 WHERE id = $2", clientID, sessionID)
	return err
}

// GetCartItems retrieves all items of a cart session, oldest first.
func (s *Store) GetCartItems(ctx context.Context, sessionID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE cart_session_id = $1 ORDER BY id", sessionID)
	return items, err
}

// GetCartItemByID retrieves a single cart item.
func (s *Store) GetCartItemByID(ctx context.Context, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM cart_items WHERE id = $1", itemID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindCartItem retrieves the item for a (session, product, variant)
// combination, or ErrNotFound when the cart has no such line.
func (s *Store) FindCartItem(ctx context.Context, sessionID, productID int64, variantID *int64) (*models.CartItem, error) {
	var item models.CartItem
	var err error
	if variantID != nil {
		err = s.db.GetContext(ctx, &item,
			"SELECT * FROM cart_items WHERE cart_session_id = $1 AND product_id = $2 AND product_variant_id = $3",
			sessionID, productID, *variantID)
	} else {
		err = s.db.GetContext(ctx, &item,
			"SELECT * FROM cart_items WHERE cart_session_id = $1 AND product_id = $2 AND product_variant_id IS NULL",
			sessionID, productID)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart item: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateCartItem inserts a cart item and fills in the generated fields.
func (s *Store) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_session_id, product_id, product_variant_id, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, item, query,
		item.CartSessionID, item.ProductID, item.ProductVariantID, item.Quantity)
}

// UpdateCartItemQuantity sets the quantity of a cart item.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, itemID)
	return err
}

// DeleteCartItem removes a single cart item.
func (s *Store) DeleteCartItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
	return err
}

// ClearCartItems removes every item of a cart session.
func (s *Store) ClearCartItems(ctx context.Context, sessionID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_session_id = $1", sessionID)
	return err
}

// DeleteExpiredCartSessions prunes sessions past their expiry together with
// their items. Not on the hot path; meant for periodic housekeeping.
func (s *Store) DeleteExpiredCartSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
