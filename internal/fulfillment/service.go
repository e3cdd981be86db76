// Package fulfillment is the caller layer above the signed client: it maps
// orders to fulfillment API payloads, submits them, and extracts tracking
// identifiers from the responses. The signing core below knows nothing
// about these shapes.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orderforge/spapi-fulfill/internal/client"
	"github.com/orderforge/spapi-fulfill/internal/store"
)

const ordersPath = "/fba/outbound/2020-07-01/fulfillmentOrders"

// Doer abstracts the signed HTTP client.
type Doer interface {
	Do(ctx context.Context, method, path string, query map[string]any, body any) (*client.Response, error)
}

// Service submits fulfillment orders and records their progress.
type Service struct {
	api     Doer
	records *store.Store
	now     func() time.Time
}

// New creates a Service. records may be nil when local persistence is
// disabled.
func New(api Doer, records *store.Store) *Service {
	return &Service{
		api:     api,
		records: records,
		now:     time.Now,
	}
}

// CreateOrder maps the order to the API payload and submits it. On success
// the order is saved locally as pending.
func (s *Service) CreateOrder(ctx context.Context, order *Order) error {
	payload, err := buildCreatePayload(order, s.now())
	if err != nil {
		return fmt.Errorf("failed to build fulfillment payload: %w", err)
	}

	if _, err = s.api.Do(ctx, http.MethodPost, ordersPath, nil, json.RawMessage(payload)); err != nil {
		return err
	}
	log.Infof("fulfillment: submitted order %s", order.ID)

	if s.records != nil {
		raw, errMarshal := json.Marshal(order)
		if errMarshal != nil {
			return fmt.Errorf("failed to serialize order record: %w", errMarshal)
		}
		if errSave := s.records.Save(&store.OrderRecord{ID: order.ID, Payload: string(raw)}); errSave != nil {
			return errSave
		}
	}
	return nil
}

// GetOrder fetches the current state of a fulfillment order.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*client.Response, error) {
	return s.api.Do(ctx, http.MethodGet, ordersPath+"/"+orderID, nil, nil)
}

// TrackingNumbers extracts every tracking identifier from a get-order
// response. Returns nil when the response carries none.
func TrackingNumbers(resp *client.Response) []string {
	if resp == nil || !resp.HasJSON {
		return nil
	}
	var numbers []string
	for _, shipment := range resp.JSON.Get("payload.fulfillmentShipments").Array() {
		for _, pkg := range shipment.Get("fulfillmentShipmentPackage").Array() {
			if tracking := pkg.Get("trackingNumber").String(); tracking != "" {
				numbers = append(numbers, tracking)
			}
		}
	}
	return numbers
}

// RecordTracking fetches an order's state and, when tracking identifiers
// are present, marks the local record fulfilled.
func (s *Service) RecordTracking(ctx context.Context, orderID string) ([]string, error) {
	resp, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	numbers := TrackingNumbers(resp)
	if len(numbers) == 0 {
		return nil, nil
	}
	if s.records != nil {
		if err = s.records.MarkFulfilled(orderID, strings.Join(numbers, ",")); err != nil {
			return numbers, err
		}
	}
	log.Infof("fulfillment: order %s tracking %s", orderID, strings.Join(numbers, ","))
	return numbers, nil
}
