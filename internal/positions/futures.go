package positions

import (
	"fmt"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

func (d Direction) sign() int64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

func directionOf(side types.OrderSide) Direction {
	if side == types.OrderSideBuy {
		return Long
	}
	return Short
}

// FuturesState is the tagged form of a futures row. Qty is the magnitude;
// Entry and Margin are meaningful only when Direction is not Flat.
type FuturesState struct {
	Direction Direction
	Qty       int64
	Entry     decimal.Decimal
	Margin    decimal.Decimal
}

func (s FuturesState) String() string {
	if s.Direction == Flat {
		return "flat"
	}
	return fmt.Sprintf("%s %d @ %s (margin %s)", s.Direction, s.Qty, s.Entry, s.Margin)
}

// Signed is the row quantity: positive long, negative short.
func (s FuturesState) Signed() int64 {
	return s.Direction.sign() * s.Qty
}

// StateOf converts a stored row into its tagged state. A nil row is Flat.
func StateOf(p *model.FuturesPosition) FuturesState {
	if p == nil || p.Quantity == 0 {
		return FuturesState{Direction: Flat}
	}
	s := FuturesState{Entry: p.EntryPrice, Margin: p.Margin}
	if p.Quantity > 0 {
		s.Direction, s.Qty = Long, p.Quantity
	} else {
		s.Direction, s.Qty = Short, -p.Quantity
	}
	return s
}

// Contract holds the per-contract terms a futures trade is sized with.
type Contract struct {
	Lot          int64
	PerLotMargin decimal.Decimal
}

// ContractTerms derives margin per lot from the instrument snapshot: the
// published marginRequired when present, otherwise price x lot x marginPct.
func ContractTerms(inst model.Instrument, price decimal.Decimal) Contract {
	lot := inst.Lot()
	perLot := accounting.Round(inst.MarginRequired)
	if !perLot.GreaterThan(decimal.Zero) {
		perLot = accounting.Margin(price, lot, inst.MarginPct)
	}
	return Contract{Lot: lot, PerLotMargin: perLot}
}

func (c Contract) marginFor(qty int64) decimal.Decimal {
	return accounting.Round(c.PerLotMargin.Mul(decimal.NewFromInt(qty)))
}

// Leg describes one sub-step of a futures trade. A flip produces a close
// leg followed by an open leg.
type Leg struct {
	Kind        string
	Qty         int64
	RealizedPnL decimal.Decimal
}

const (
	LegOpen   = "open"
	LegAdd    = "add"
	LegReduce = "reduce"
	LegClose  = "close"
)

type FuturesResult struct {
	Prev  FuturesState
	State FuturesState
	// Position is nil when the state is Flat and the row must be deleted.
	Position    *model.FuturesPosition
	Legs        []Leg
	Total       decimal.Decimal
	RealizedPnL decimal.Decimal
	Movements   []Movement
}

// ApplyFutures runs one trade through the Flat/Long/Short machine. Cash
// movements are ordered so that margin released by a close is credited
// before margin for a new leg is reserved.
func ApplyFutures(prev *model.FuturesPosition, t Trade, c Contract) (FuturesResult, error) {
	if err := validate(t); err != nil {
		return FuturesResult{}, err
	}
	if c.Lot <= 0 {
		return FuturesResult{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "contract %s has no lot size", t.InstrumentID)
	}
	if !c.PerLotMargin.IsPositive() {
		return FuturesResult{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "contract %s has no margin terms", t.InstrumentID)
	}

	s := StateOf(prev)
	res := FuturesResult{Prev: s, Total: accounting.Notional(t.Price, t.Qty, c.Lot)}
	dir := directionOf(t.Side)

	switch {
	case s.Direction == Flat:
		s = res.open(dir, t.Qty, t.Price, c)
	case s.Direction == dir:
		s = res.add(s, t.Qty, t.Price, c)
	case t.Qty < s.Qty:
		s = res.reduce(s, t.Qty, t.Price, c)
	case t.Qty == s.Qty:
		s = res.close(s, t.Price, c)
	default:
		rest := t.Qty - s.Qty
		s = res.close(s, t.Price, c)
		s = res.open(dir, rest, t.Price, c)
	}

	res.State = s
	res.Position = s.position(t, c.Lot)
	return res, nil
}

func (r *FuturesResult) open(dir Direction, qty int64, price decimal.Decimal, c Contract) FuturesState {
	next := FuturesState{Direction: dir, Qty: qty, Entry: accounting.Round(price), Margin: c.marginFor(qty)}
	r.Movements = appendMovement(r.Movements, types.BucketMargin, next.Margin.Neg(), types.LedgerEntryTypeMarginReserve)
	r.Legs = append(r.Legs, Leg{Kind: LegOpen, Qty: qty})
	return next
}

func (r *FuturesResult) add(s FuturesState, qty int64, price decimal.Decimal, c Contract) FuturesState {
	next := FuturesState{
		Direction: s.Direction,
		Qty:       s.Qty + qty,
		Entry:     accounting.NewAverage(s.Entry, s.Qty, price, qty),
	}
	next.Margin = c.marginFor(next.Qty)
	r.remargin(s.Margin, next.Margin)
	r.Legs = append(r.Legs, Leg{Kind: LegAdd, Qty: qty})
	return next
}

func (r *FuturesResult) reduce(s FuturesState, qty int64, price decimal.Decimal, c Contract) FuturesState {
	next := FuturesState{
		Direction: s.Direction,
		Qty:       s.Qty - qty,
		Entry:     accounting.Unwind(s.Entry, s.Qty, price, qty),
	}
	next.Margin = c.marginFor(next.Qty)
	r.remargin(s.Margin, next.Margin)
	r.Legs = append(r.Legs, Leg{Kind: LegReduce, Qty: qty})
	return next
}

func (r *FuturesResult) close(s FuturesState, price decimal.Decimal, c Contract) FuturesState {
	pnl := accounting.PnL(s.Entry, price, c.Lot, s.Signed())
	r.Movements = appendMovement(r.Movements, types.BucketMargin, s.Margin, types.LedgerEntryTypeMarginRelease)
	r.Movements = appendMovement(r.Movements, types.BucketMarket, pnl, types.LedgerEntryTypeSettlement)
	r.RealizedPnL = r.RealizedPnL.Add(pnl)
	r.Legs = append(r.Legs, Leg{Kind: LegClose, Qty: s.Qty, RealizedPnL: pnl})
	return FuturesState{Direction: Flat}
}

// remargin books the difference between the margin held and the margin the
// new magnitude requires.
func (r *FuturesResult) remargin(held, required decimal.Decimal) {
	diff := held.Sub(required)
	if diff.IsPositive() {
		r.Movements = appendMovement(r.Movements, types.BucketMargin, diff, types.LedgerEntryTypeMarginRelease)
	} else {
		r.Movements = appendMovement(r.Movements, types.BucketMargin, diff, types.LedgerEntryTypeMarginReserve)
	}
}

func (s FuturesState) position(t Trade, lot int64) *model.FuturesPosition {
	if s.Direction == Flat {
		return nil
	}
	return &model.FuturesPosition{
		AccountID:    t.AccountID,
		ContractID:   t.InstrumentID,
		Quantity:     s.Signed(),
		EntryPrice:   s.Entry,
		CurrentPrice: accounting.Round(t.Price),
		Margin:       s.Margin,
		PnL:          accounting.PnL(s.Entry, t.Price, lot, s.Signed()),
		UpdatedAt:    t.At,
	}
}

// MarginHeld is the margin a set of rows should have reserved in total.
func MarginHeld(rows []model.FuturesPosition) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range rows {
		sum = sum.Add(p.Margin)
	}
	return sum
}
