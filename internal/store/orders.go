package store

import (
	"context"
	"database/sql"
	"fmt"

	"bs-shop/internal/models"
)

// ConvertLine is one cart line prepared for conversion. UnitPrice is the
// frozen effective price; DecrementStock marks variant lines with a bounded
// stock quantity.
type ConvertLine struct {
	ProductID      int64
	VariantID      *int64
	Quantity       int
	UnitPrice      int64
	DecrementStock bool
}

// ConvertCartParams carries everything ConvertCart needs so that no catalog
// read happens inside the transaction.
type ConvertCartParams struct {
	SessionID   int64
	ClientID    int64        // owning identity when already resolved
	Guest       *models.User // when set, provisioned inside the transaction and used as owner
	LinkSession bool         // attach the owner to the cart session
	TotalAmount int64
	Notes       string
	Lines       []ConvertLine
}

// ConvertCart converts a cart session into an order as a single transaction:
// guest provisioning / session relink, order + order item inserts, the
// conditional stock decrements and the cart clear either all commit or all
// roll back. The decrement is decrement-if-sufficient; a zero-row update
// means a concurrent conversion won the remaining stock and the whole
// conversion is aborted with an InsufficientStockError.
func (s *Store) ConvertCart(ctx context.Context, params ConvertCartParams) (*models.Order, []models.OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	clientID := params.ClientID
	if params.Guest != nil {
		if err := tx.GetContext(ctx, params.Guest, `
			INSERT INTO users (name, email, whatsapp_phone, role, is_active, is_guest)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`,
			params.Guest.Name, params.Guest.Email, params.Guest.WhatsAppPhone,
			params.Guest.Role, params.Guest.IsActive, params.Guest.IsGuest); err != nil {
			return nil, nil, fmt.Errorf("failed to provision guest user: %w", err)
		}
		clientID = params.Guest.ID
	}

	if params.LinkSession || params.Guest != nil {
		if _, err := tx.ExecContext(ctx,
			"UPDATE cart_sessions SET client_id = $1 WHERE id = $2",
			clientID, params.SessionID); err != nil {
			return nil, nil, fmt.Errorf("failed to link cart session: %w", err)
		}
	}

	var order models.Order
	if err := tx.GetContext(ctx, &order, `
		INSERT INTO orders (client_id, total_amount, status, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		clientID, params.TotalAmount, models.OrderStatusPending, params.Notes); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(params.Lines))
	for _, line := range params.Lines {
		item := models.OrderItem{
			OrderID:          order.ID,
			ProductID:        line.ProductID,
			ProductVariantID: line.VariantID,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			TotalPrice:       line.UnitPrice * int64(line.Quantity),
		}
		if err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, product_variant_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			item.OrderID, item.ProductID, item.ProductVariantID,
			item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return nil, nil, fmt.Errorf("failed to create order item: %w", err)
		}

		if line.DecrementStock && line.VariantID != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE product_variants
				SET stock_quantity = stock_quantity - $1
				WHERE id = $2 AND stock_quantity IS NOT NULL AND stock_quantity >= $1`,
				line.Quantity, *line.VariantID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decrement stock: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decrement stock: %w", err)
			}
			if rows == 0 {
				return nil, nil, &InsufficientStockError{VariantID: *line.VariantID, Quantity: line.Quantity}
			}
		}

		items = append(items, item)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_session_id = $1", params.SessionID); err != nil {
		return nil, nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit conversion: %w", err)
	}

	return &order, items, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByClientID retrieves a client's orders, newest first.
func (s *Store) GetOrdersByClientID(ctx context.Context, clientID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE client_id = $1 ORDER BY created_at DESC", clientID)
	return orders, err
}

// ListOrders retrieves a page of all orders, newest first.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return orders, err
}

// CountOrders returns the total number of orders.
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders")
	return count, err
}

// CountOrdersByStatus returns the number of orders per status.
func (s *Store) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// GetOrdersTotalRevenue returns the sum of all order totals in cents.
func (s *Store) GetOrdersTotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(total_amount), 0) FROM orders")
	return total, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus updates an order's status and, when notes is non-nil,
// its notes. The frozen total is never touched.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string, notes *string) error {
	var err error
	if notes != nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE orders SET status = $1, notes = $2, updated_at = NOW() WHERE id = $3",
			status, *notes, orderID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
			status, orderID)
	}
	return err
}

// SetOrderWhatsAppMessageID records the confirmation channel message
// reference once the message has been sent.
func (s *Store) SetOrderWhatsAppMessageID(ctx context.Context, orderID int64, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET whatsapp_message_id = $1, updated_at = NOW() WHERE id = $2",
		messageID, orderID)
	return err
}
