package entity

import (
	"context"

	"github.com/goccy/go-json"
)

type MarketsQuery struct {
	Limit    int
	Offset   int
	Active   bool
	Archived bool
	Closed   bool
}

// VenueConnector is the opaque venue capability: credential issuance,
// signed order entry and the passthrough read endpoints. The connection
// lifecycle core never looks inside the payloads it returns.
type VenueConnector interface {
	CreateAPIKey(ctx context.Context) (Credentials, error)
	DeleteAPIKey(ctx context.Context) error
	PlaceOrder(ctx context.Context, order OrderRequest) (json.RawMessage, error)
	CancelOrder(ctx context.Context, orderID string) (json.RawMessage, error)
	Markets(ctx context.Context, query MarketsQuery) (json.RawMessage, error)
	Positions(ctx context.Context) (json.RawMessage, error)
}
