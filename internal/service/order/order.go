package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/krobus00/clob-gateway/internal/entity"
)

var (
	ErrMissingOrderID = errors.New("order id is required")
	ErrMissingTokenID = errors.New("token id is required")
)

// Gateway is a stateless proxy to the venue trading endpoint. Venue
// rejections and transport failures come back as plain errors, never as a
// panic, and are never retried here.
type Gateway struct {
	venue entity.VenueConnector
}

func NewGateway(venue entity.VenueConnector) *Gateway {
	return &Gateway{venue: venue}
}

func (g *Gateway) Submit(ctx context.Context, req entity.OrderRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.TokenID) == "" {
		return nil, ErrMissingTokenID
	}

	if _, err := entity.ParseOrderSide(string(req.Side)); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}

	logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"token_id":   req.TokenID,
		"side":       req.Side,
		"price":      req.Price.String(),
		"size":       req.Size.String(),
	}).Info("submitting order")

	ack, err := g.venue.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	return ack, nil
}

func (g *Gateway) Cancel(ctx context.Context, req entity.CancelRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, ErrMissingOrderID
	}

	logrus.WithField("order_id", req.OrderID).Info("cancelling order")

	ack, err := g.venue.CancelOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	return ack, nil
}
