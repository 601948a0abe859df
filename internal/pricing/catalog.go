package pricing

import (
	"fmt"
	"math"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/gacha"
)

// Price is the cost of one unit of something in a single currency.
type Price struct {
	Currency domain.Currency `yaml:"currency" json:"currency"`
	Cost     int64           `yaml:"cost" json:"cost"`
}

// Rate converts Base into Quote: Rate base units buy one quote unit.
type Rate struct {
	Base  domain.Currency `yaml:"base" json:"base"`
	Quote domain.Currency `yaml:"quote" json:"quote"`
	Rate  int64           `yaml:"rate" json:"rate"`
}

// Catalog is the in-game price list.
type Catalog struct {
	Cases    map[gacha.CaseTier]Price `json:"cases"`
	Mask     Price                    `json:"mask"`
	Exchange []Rate                   `json:"exchange"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Cases: map[gacha.CaseTier]Price{
			gacha.TierBasic:     {Currency: domain.Soul, Cost: 50},
			gacha.TierLegendary: {Currency: domain.Soul, Cost: 150},
			gacha.TierNoBonus:   {Currency: domain.Soul, Cost: 100},
		},
		Mask: Price{Currency: domain.Soul, Cost: 20},
		Exchange: []Rate{
			{Base: domain.Soul, Quote: domain.DreamPoints, Rate: 100},
			{Base: domain.Soul, Quote: domain.Coins, Rate: 10},
		},
	}
}

// Purchase is one priced line item.
type Purchase struct {
	Qty      int64           `json:"qty"`
	Unit     int64           `json:"unit"`
	Total    int64           `json:"total"`
	Currency domain.Currency `json:"currency"`
}

// Quote prices qty units at p.
func (p Price) Quote(qty int64) (Purchase, error) {
	if qty <= 0 {
		return Purchase{}, fmt.Errorf("quantity must be > 0")
	}
	if p.Cost > 0 && qty > math.MaxInt64/p.Cost {
		return Purchase{}, fmt.Errorf("quantity too large")
	}
	return Purchase{Qty: qty, Unit: p.Cost, Total: p.Cost * qty, Currency: p.Currency}, nil
}

// Affordable is how many units a balance covers.
func (p Price) Affordable(balance int64) int64 {
	if p.Cost <= 0 || balance <= 0 {
		return 0
	}
	return balance / p.Cost
}

// CasePrice returns the price of one case of tier.
func (c Catalog) CasePrice(tier gacha.CaseTier) (Price, bool) {
	p, ok := c.Cases[tier]
	return p, ok
}

// Conversion is a resolved exchange between two currencies.
type Conversion struct {
	From     domain.Currency
	To       domain.Currency
	Rate     int64
	Forward  bool // base -> quote
	Debited  int64
	Credited int64
}

// Convert resolves an exchange of amount from -> to. Forward conversions
// credit amount/rate and drop the remainder; reverse ones credit amount*rate.
func (c Catalog) Convert(from, to domain.Currency, amount int64) (Conversion, error) {
	if amount <= 0 {
		return Conversion{}, fmt.Errorf("amount must be > 0")
	}
	for _, r := range c.Exchange {
		switch {
		case r.Base == from && r.Quote == to:
			if amount < r.Rate {
				return Conversion{}, fmt.Errorf("amount must be at least %d %s", r.Rate, from)
			}
			return Conversion{From: from, To: to, Rate: r.Rate, Forward: true,
				Debited: amount, Credited: amount / r.Rate}, nil
		case r.Base == to && r.Quote == from:
			if amount > math.MaxInt64/r.Rate {
				return Conversion{}, fmt.Errorf("amount too large")
			}
			return Conversion{From: from, To: to, Rate: r.Rate,
				Debited: amount, Credited: amount * r.Rate}, nil
		}
	}
	return Conversion{}, fmt.Errorf("no exchange rate between %s and %s", from, to)
}

// Validate checks currencies and amounts of the whole catalog.
func (c Catalog) Validate() []string {
	var errs []string
	for tier, p := range c.Cases {
		if !tier.Valid() {
			errs = append(errs, fmt.Sprintf("economy.cases: unknown tier %q", tier))
		}
		if !p.Currency.Valid() || p.Cost <= 0 {
			errs = append(errs, fmt.Sprintf("economy.cases.%s: needs a valid currency and cost > 0", tier))
		}
	}
	if !c.Mask.Currency.Valid() || c.Mask.Currency == domain.Masks || c.Mask.Cost <= 0 {
		errs = append(errs, "economy.mask: needs a non-mask currency and cost > 0")
	}
	seen := map[[2]domain.Currency]bool{}
	for i, r := range c.Exchange {
		if !r.Base.Valid() || !r.Quote.Valid() || r.Base == r.Quote {
			errs = append(errs, fmt.Sprintf("economy.exchange[%d]: base and quote must be distinct currencies", i))
		}
		if r.Rate < 1 {
			errs = append(errs, fmt.Sprintf("economy.exchange[%d]: rate must be >= 1", i))
		}
		key := [2]domain.Currency{r.Base, r.Quote}
		rev := [2]domain.Currency{r.Quote, r.Base}
		if seen[key] || seen[rev] {
			errs = append(errs, fmt.Sprintf("economy.exchange[%d]: duplicate pair %s/%s", i, r.Base, r.Quote))
		}
		seen[key] = true
	}
	return errs
}
