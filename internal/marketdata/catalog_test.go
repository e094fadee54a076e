package marketdata

import (
	"context"
	"strings"
	"testing"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
instruments:
  - id: AAPL
    kind: equity
    current_price: "187.25"
    previous_close: "185.10"
  - id: NIFTY-JUN
    symbol: NIFTY
    kind: FUTURE
    current_price: 22500
    lot_size: 50
    margin_pct: "0.12"
    expiry_date: 2024-06-27T15:30:00Z
  - id: NIFTY-22500-CE
    kind: OPTION
    option_type: call
    current_price: 22500
    premium_price: "135.5"
    strike_price: 22500
    lot_size: 50
`

type memWriter struct {
	got []model.Instrument
}

func (m *memWriter) UpsertInstrument(_ context.Context, inst model.Instrument) error {
	m.got = append(m.got, inst)
	return nil
}

func TestReadCatalog(t *testing.T) {
	t.Parallel()

	c, err := ReadCatalog(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, c.Instruments, 3)

	aapl := c.Instruments[0]
	assert.Equal(t, types.InstrumentKindEquity, aapl.Kind)
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, "187.25", aapl.CurrentPrice.String())

	fut := c.Instruments[1]
	assert.Equal(t, int64(50), fut.LotSize)
	assert.Equal(t, "0.12", fut.MarginPct.String())
	require.NotNil(t, fut.ExpiryDate)
	assert.Equal(t, 2024, fut.ExpiryDate.Year())

	opt := c.Instruments[2]
	assert.Equal(t, types.OptionTypeCall, opt.OptionType)
	assert.Equal(t, "135.5", opt.TradePrice().String())

	w := &memWriter{}
	require.NoError(t, c.Seed(context.Background(), w))
	assert.Len(t, w.got, 3)
}

func TestReadCatalogRejectsBadRows(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown kind":     "instruments:\n  - {id: X, kind: BOND, current_price: 1}\n",
		"no price":         "instruments:\n  - {id: X, kind: EQUITY}\n",
		"future no lot":    "instruments:\n  - {id: X, kind: FUTURE, current_price: 1}\n",
		"future no margin": "instruments:\n  - {id: X, kind: FUTURE, current_price: 1, lot_size: 50}\n",
		"option no type":   "instruments:\n  - {id: X, kind: OPTION, current_price: 1, lot_size: 1}\n",
		"duplicate":        "instruments:\n  - {id: X, kind: EQUITY, current_price: 1}\n  - {id: X, kind: EQUITY, current_price: 2}\n",
		"unknown field":    "instruments:\n  - {id: X, kind: EQUITY, current_price: 1, colour: red}\n",
		"missing id":       "instruments:\n  - {kind: EQUITY, current_price: 1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCatalog(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
