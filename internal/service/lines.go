package service

import (
	"context"
	"fmt"

	"bs-shop/internal/models"
)

// loadCartLines resolves a session's cart items against the catalog. A cart
// item pointing at a missing product or variant is a referential breakage
// and fails the load.
func loadCartLines(ctx context.Context, st Store, sessionID int64) ([]models.CartLine, error) {
	items, err := st.GetCartItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	if len(items) == 0 {
		return []models.CartLine{}, nil
	}

	products, variants, err := loadCatalogFor(ctx, st, itemRefs(items))
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("cart item %d references missing product %d", item.ID, item.ProductID)
		}
		line := models.CartLine{Item: item, Product: product}
		if item.ProductVariantID != nil {
			variant, ok := variants[*item.ProductVariantID]
			if !ok {
				return nil, fmt.Errorf("cart item %d references missing variant %d", item.ID, *item.ProductVariantID)
			}
			line.Variant = &variant
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// loadOrderLines resolves order items against the catalog for display and
// message rendering.
func loadOrderLines(ctx context.Context, st Store, items []models.OrderItem) ([]models.OrderLine, error) {
	if len(items) == 0 {
		return []models.OrderLine{}, nil
	}

	refs := make([]lineRef, len(items))
	for i, item := range items {
		refs[i] = lineRef{productID: item.ProductID, variantID: item.ProductVariantID}
	}
	products, variants, err := loadCatalogFor(ctx, st, refs)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("order item %d references missing product %d", item.ID, item.ProductID)
		}
		line := models.OrderLine{Item: item, Product: product}
		if item.ProductVariantID != nil {
			variant, ok := variants[*item.ProductVariantID]
			if !ok {
				return nil, fmt.Errorf("order item %d references missing variant %d", item.ID, *item.ProductVariantID)
			}
			line.Variant = &variant
		}
		lines = append(lines, line)
	}
	return lines, nil
}

type lineRef struct {
	productID int64
	variantID *int64
}

func itemRefs(items []models.CartItem) []lineRef {
	refs := make([]lineRef, len(items))
	for i, item := range items {
		refs[i] = lineRef{productID: item.ProductID, variantID: item.ProductVariantID}
	}
	return refs
}

func loadCatalogFor(ctx context.Context, st Store, refs []lineRef) (map[int64]models.Product, map[int64]models.ProductVariant, error) {
	productIDs := make([]int64, 0, len(refs))
	variantIDs := make([]int64, 0, len(refs))
	seenProducts := make(map[int64]bool)
	seenVariants := make(map[int64]bool)
	for _, ref := range refs {
		if !seenProducts[ref.productID] {
			seenProducts[ref.productID] = true
			productIDs = append(productIDs, ref.productID)
		}
		if ref.variantID != nil && !seenVariants[*ref.variantID] {
			seenVariants[*ref.variantID] = true
			variantIDs = append(variantIDs, *ref.variantID)
		}
	}

	productRows, err := st.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load products: %w", err)
	}
	variantRows, err := st.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load variants: %w", err)
	}

	products := make(map[int64]models.Product, len(productRows))
	for _, p := range productRows {
		products[p.ID] = p
	}
	variants := make(map[int64]models.ProductVariant, len(variantRows))
	for _, v := range variantRows {
		variants[v.ID] = v
	}
	return products, variants, nil
}
