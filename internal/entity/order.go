package entity

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

var ErrInvalidOrderSide = errors.New("order side must be BUY or SELL")

// ParseOrderSide rejects anything outside the two venue directions instead
// of silently defaulting.
func ParseOrderSide(raw string) (OrderSide, error) {
	switch OrderSide(strings.ToUpper(strings.TrimSpace(raw))) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	default:
		return "", ErrInvalidOrderSide
	}
}

type OrderRequest struct {
	RequestID  string
	TokenID    string
	Price      decimal.Decimal
	Size       decimal.Decimal
	Side       OrderSide
	Expiration *int64
}

type CancelRequest struct {
	OrderID string
}
