package fulfillment

// Order describes a shipment request as supplied by the caller before
// payload mapping.
type Order struct {
	// ID is the seller fulfillment order identifier, unique per order.
	ID string `json:"id"`
	// DisplayableOrderID is shown to the recipient; defaults to ID.
	DisplayableOrderID string `json:"displayable_order_id,omitempty"`
	// ShippingSpeed is Standard, Expedited, or Priority.
	ShippingSpeed string `json:"shipping_speed"`
	// Comment is an optional displayable note for the recipient.
	Comment string `json:"comment,omitempty"`
	// Recipient is the destination address.
	Recipient Address `json:"recipient"`
	// Items lists the SKUs to ship.
	Items []Item `json:"items"`
}

// Address is a shipping destination.
type Address struct {
	Name          string `json:"name"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2,omitempty"`
	City          string `json:"city"`
	StateOrRegion string `json:"state_or_region"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
	Phone         string `json:"phone,omitempty"`
}

// Item is one order line.
type Item struct {
	// SKU is the seller SKU of the item.
	SKU string `json:"sku"`
	// Quantity must be at least 1.
	Quantity int `json:"quantity"`
	// DeclaredValue is the optional per-unit declared value.
	DeclaredValue *Money `json:"declared_value,omitempty"`
}

// Money is an amount in a specific currency.
type Money struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
}
