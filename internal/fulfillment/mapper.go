package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// buildCreatePayload maps an Order to the createFulfillmentOrder request
// JSON. Blank optional address lines are dropped, country codes are
// upper-cased, and money amounts render with two decimals.
func buildCreatePayload(order *Order, now time.Time) (string, error) {
	if order.ID == "" {
		return "", fmt.Errorf("order id is required")
	}
	if len(order.Items) == 0 {
		return "", fmt.Errorf("order %s has no items", order.ID)
	}

	displayableID := order.DisplayableOrderID
	if displayableID == "" {
		displayableID = order.ID
	}
	speed := order.ShippingSpeed
	if speed == "" {
		speed = "Standard"
	}

	payload := "{}"
	payload, _ = sjson.Set(payload, "sellerFulfillmentOrderId", order.ID)
	payload, _ = sjson.Set(payload, "displayableOrderId", displayableID)
	payload, _ = sjson.Set(payload, "displayableOrderDate", now.UTC().Format(time.RFC3339))
	payload, _ = sjson.Set(payload, "shippingSpeedCategory", speed)
	if order.Comment != "" {
		payload, _ = sjson.Set(payload, "displayableOrderComment", order.Comment)
	}

	address, err := mapAddress(order.Recipient)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", order.ID, err)
	}
	payload, _ = sjson.SetRaw(payload, "destinationAddress", address)

	var items strings.Builder
	items.WriteByte('[')
	for i, item := range order.Items {
		if item.SKU == "" {
			return "", fmt.Errorf("order %s: item %d has no sku", order.ID, i)
		}
		if item.Quantity < 1 {
			return "", fmt.Errorf("order %s: item %s quantity must be at least 1", order.ID, item.SKU)
		}
		entry := "{}"
		entry, _ = sjson.Set(entry, "sellerSku", item.SKU)
		entry, _ = sjson.Set(entry, "sellerFulfillmentOrderItemId", fmt.Sprintf("%s-%d", order.ID, i+1))
		entry, _ = sjson.Set(entry, "quantity", item.Quantity)
		if item.DeclaredValue != nil {
			entry, _ = sjson.Set(entry, "perUnitDeclaredValue.value", formatAmount(item.DeclaredValue.Amount))
			entry, _ = sjson.Set(entry, "perUnitDeclaredValue.currencyCode", strings.ToUpper(item.DeclaredValue.CurrencyCode))
		}
		if i > 0 {
			items.WriteByte(',')
		}
		items.WriteString(entry)
	}
	items.WriteByte(']')
	payload, _ = sjson.SetRaw(payload, "items", items.String())

	return payload, nil
}

// mapAddress renders a destination address as JSON, validating the required
// fields and skipping blank optional ones.
func mapAddress(addr Address) (string, error) {
	required := []struct {
		name  string
		value string
	}{
		{"name", addr.Name},
		{"address line 1", addr.AddressLine1},
		{"city", addr.City},
		{"postal code", addr.PostalCode},
		{"country code", addr.CountryCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return "", fmt.Errorf("recipient %s is required", field.name)
		}
	}

	out := "{}"
	out, _ = sjson.Set(out, "name", strings.TrimSpace(addr.Name))
	out, _ = sjson.Set(out, "addressLine1", strings.TrimSpace(addr.AddressLine1))
	if line2 := strings.TrimSpace(addr.AddressLine2); line2 != "" {
		out, _ = sjson.Set(out, "addressLine2", line2)
	}
	out, _ = sjson.Set(out, "city", strings.TrimSpace(addr.City))
	if state := strings.TrimSpace(addr.StateOrRegion); state != "" {
		out, _ = sjson.Set(out, "stateOrRegion", state)
	}
	out, _ = sjson.Set(out, "postalCode", strings.TrimSpace(addr.PostalCode))
	out, _ = sjson.Set(out, "countryCode", strings.ToUpper(strings.TrimSpace(addr.CountryCode)))
	if phone := strings.TrimSpace(addr.Phone); phone != "" {
		out, _ = sjson.Set(out, "phone", phone)
	}
	return out, nil
}

// formatAmount renders a money amount with exactly two decimals.
func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
