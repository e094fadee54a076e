package marketdata

import (
	"context"
	"fmt"
	"time"

	"lv-paperledger/internal/model"

	"github.com/shopspring/decimal"
)

const EventQuote = "quote"

// Quote is a price update from the feed. Premium only applies to options.
type Quote struct {
	InstrumentID string          `json:"instrument_id"`
	Price        decimal.Decimal `json:"price"`
	Premium      decimal.Decimal `json:"premium,omitempty"`
	Timestamp    int64           `json:"ts"`
}

type InstrumentStore interface {
	InstrumentWriter
	GetInstrument(ctx context.Context, instrumentID string) (model.Instrument, error)
}

// Feed applies quotes to the instrument table and broadcasts them. Orders
// in flight keep the snapshot they already read.
type Feed struct {
	store InstrumentStore
	bus   *Bus
}

func NewFeed(st InstrumentStore, bus *Bus) *Feed {
	return &Feed{store: st, bus: bus}
}

func (f *Feed) Apply(ctx context.Context, q Quote) (model.Instrument, error) {
	if !q.Price.IsPositive() {
		return model.Instrument{}, fmt.Errorf("quote for %s: price must be positive", q.InstrumentID)
	}
	inst, err := f.store.GetInstrument(ctx, q.InstrumentID)
	if err != nil {
		return model.Instrument{}, err
	}
	inst.PreviousClose = inst.CurrentPrice
	inst.CurrentPrice = q.Price
	if q.Premium.IsPositive() {
		inst.PremiumPrice = q.Premium
	}
	if err := f.store.UpsertInstrument(ctx, inst); err != nil {
		return model.Instrument{}, err
	}
	if q.Timestamp == 0 {
		q.Timestamp = time.Now().UnixMilli()
	}
	if f.bus != nil {
		f.bus.Publish(Event{Type: EventQuote, Data: q})
	}
	inst.Version++
	return inst, nil
}
