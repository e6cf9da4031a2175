package service

import "bs-shop/internal/models"

// VariantAvailable reports whether a variant can satisfy the requested
// quantity. A nil stock quantity means unlimited stock; any integer,
// including 0, is a hard ceiling. Requesting more than the ceiling fails,
// it is never clamped.
func VariantAvailable(v *models.ProductVariant, quantity int) bool {
	if !v.IsActive {
		return false
	}
	if v.StockQuantity == nil {
		return true
	}
	return *v.StockQuantity >= quantity
}

// ValidateCartLines checks every cart line against the catalog snapshot it
// was loaded with and returns the display names of all unavailable lines.
// Variant lines fail on the variant predicate alone; the product active
// flag only gates variant-less lines. An empty result means the whole cart
// is available. Read-only; run again at conversion time rather than trusted
// from an earlier display.
func ValidateCartLines(lines []models.CartLine) []string {
	var unavailable []string
	for i := range lines {
		line := &lines[i]
		if line.Variant != nil {
			if !VariantAvailable(line.Variant, line.Item.Quantity) {
				unavailable = append(unavailable, line.DisplayName())
			}
			continue
		}
		if !line.Product.IsActive {
			unavailable = append(unavailable, line.DisplayName())
		}
	}
	return unavailable
}
