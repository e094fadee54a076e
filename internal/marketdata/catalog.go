package marketdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Catalog is a set of instrument snapshots loaded from a fixture file.
type Catalog struct {
	Instruments []model.Instrument `yaml:"instruments"`
}

type InstrumentWriter interface {
	UpsertInstrument(ctx context.Context, inst model.Instrument) error
}

func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, err
	}
	defer f.Close()
	return ReadCatalog(f)
}

func ReadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	seen := map[string]bool{}
	for i := range c.Instruments {
		inst := &c.Instruments[i]
		inst.ID = strings.TrimSpace(inst.ID)
		inst.Kind = types.InstrumentKind(strings.ToUpper(string(inst.Kind)))
		inst.OptionType = types.OptionType(strings.ToUpper(string(inst.OptionType)))
		if inst.Symbol == "" {
			inst.Symbol = inst.ID
		}
		if err := validateInstrument(*inst); err != nil {
			return Catalog{}, fmt.Errorf("instrument %d: %w", i, err)
		}
		if seen[inst.ID] {
			return Catalog{}, fmt.Errorf("instrument %s listed twice", inst.ID)
		}
		seen[inst.ID] = true
	}
	return c, nil
}

func validateInstrument(inst model.Instrument) error {
	if inst.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !inst.Kind.Valid() {
		return fmt.Errorf("%s: unknown kind %q", inst.ID, inst.Kind)
	}
	if !inst.CurrentPrice.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%s: current_price must be positive", inst.ID)
	}
	if inst.Kind.Derivative() && inst.LotSize <= 0 {
		return fmt.Errorf("%s: lot_size is required for derivatives", inst.ID)
	}
	if inst.CheckTerms() != nil {
		return fmt.Errorf("%s: margin_required or margin_pct is required for futures", inst.ID)
	}
	if inst.Kind == types.InstrumentKindOption && inst.OptionType != types.OptionTypeCall && inst.OptionType != types.OptionTypePut {
		return fmt.Errorf("%s: option_type must be CALL or PUT", inst.ID)
	}
	return nil
}

// Seed writes every instrument in the catalog.
func (c Catalog) Seed(ctx context.Context, w InstrumentWriter) error {
	for _, inst := range c.Instruments {
		if err := w.UpsertInstrument(ctx, inst); err != nil {
			return fmt.Errorf("seed %s: %w", inst.ID, err)
		}
	}
	return nil
}
