// README: Rate table loading (embedded default, YAML file) and load-time validation.
package pricing

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"medquote/internal/modules/plan"
)

//go:embed rates.yaml
var defaultRates []byte

var (
	ErrInvalidRateTable = errors.New("invalid rate table")
	ErrUnknownCategory  = errors.New("unknown category")
)

// RateTable is immutable once built; accessors hand out copies.
type RateTable struct {
	currency string
	items    map[plan.Category][]RateItem
}

type tableFile struct {
	Currency   string                       `yaml:"currency"`
	Categories map[plan.Category][]RateItem `yaml:"categories"`
}

// NewRateTable validates items and takes a private copy of them.
func NewRateTable(currency string, items map[plan.Category][]RateItem) (*RateTable, error) {
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidRateTable)
	}
	t := &RateTable{currency: currency, items: make(map[plan.Category][]RateItem, len(items))}
	for cat, list := range items {
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidRateTable, ErrUnknownCategory, cat)
		}
		for i, it := range list {
			if err := validateItem(cat, it); err != nil {
				return nil, fmt.Errorf("%w: %s[%d] %q: %w", ErrInvalidRateTable, cat, i, it.Item, err)
			}
		}
		t.items[cat] = cloneItems(list)
	}
	return t, nil
}

func validateItem(cat plan.Category, it RateItem) error {
	switch {
	case it.Item == "":
		return errors.New("item name is required")
	case !it.Formula.Valid():
		return fmt.Errorf("unknown formula %q", it.Formula)
	case it.UnitPrice.IsNegative():
		return errors.New("unit price must not be negative")
	case cat == plan.CategoryEvent && it.Formula.DistanceBased():
		return errors.New("event support items cannot be priced by distance")
	case it.Bundle && it.Formula != FormulaFlat:
		return errors.New("bundle items must use the FLAT formula")
	}
	return nil
}

func cloneItems(list []RateItem) []RateItem {
	out := slices.Clone(list)
	for i := range out {
		if q := out[i].Qualifiers; q != nil {
			cp := *q
			if q.Cremated != nil {
				v := *q.Cremated
				cp.Cremated = &v
			}
			out[i].Qualifiers = &cp
		}
	}
	return out
}

// DecodeYAML reads a rate table document.
func DecodeYAML(r io.Reader) (*RateTable, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRateTable, err)
	}
	return NewRateTable(f.Currency, f.Categories)
}

// LoadFile reads a YAML rate table from path.
func LoadFile(path string) (*RateTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rate table: %w", err)
	}
	defer fh.Close()
	return DecodeYAML(fh)
}

// Default returns the rate table compiled into the binary.
func Default() (*RateTable, error) {
	return DecodeYAML(bytes.NewReader(defaultRates))
}

func (t *RateTable) Currency() string { return t.currency }

// Items returns a copy of the category's items in table order.
func (t *RateTable) Items(cat plan.Category) []RateItem {
	return cloneItems(t.items[cat])
}

// Categories lists the categories present, in canonical order.
func (t *RateTable) Categories() []plan.Category {
	var out []plan.Category
	for _, c := range plan.Categories {
		if _, ok := t.items[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ItemNames lists distinct item names of a category in first-appearance order.
func (t *RateTable) ItemNames(cat plan.Category) []string {
	var names []string
	for _, it := range t.items[cat] {
		if !slices.Contains(names, it.Item) {
			names = append(names, it.Item)
		}
	}
	return names
}

// EncodeYAML writes the table in the same document shape DecodeYAML reads.
func (t *RateTable) EncodeYAML(w io.Writer) error {
	f := tableFile{Currency: t.currency, Categories: make(map[plan.Category][]RateItem, len(t.items))}
	for cat, list := range t.items {
		f.Categories[cat] = cloneItems(list)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
