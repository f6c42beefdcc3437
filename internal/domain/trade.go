package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// OrderType names one of the four trade operations the executor supports.
// There is no order book and no matching engine: every order fills in full
// at the current Price Index value for its symbol.
type OrderType string

const (
	Buy        OrderType = "BUY"
	Sell       OrderType = "SELL"
	ShortSell  OrderType = "SHORT_SELL"
	BuyToCover OrderType = "BUY_TO_COVER"
)

// UnmarshalJSON folds the wire form to the canonical uppercase constants:
// clients submit "buy", "sell", "short_sell", "buy_to_cover".
func (o *OrderType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = OrderType(strings.ToUpper(s))
	return nil
}

// TradeRecord is an immutable, append-only record of one executed order.
type TradeRecord struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Symbol    string    `json:"symbol"`
	OrderType OrderType `json:"order_type"`
	Qty       int64     `json:"qty"`
	Px        float64   `json:"px"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
