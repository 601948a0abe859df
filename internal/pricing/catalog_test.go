package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/gacha"
)

func TestQuote(t *testing.T) {
	p := DefaultCatalog().Mask
	got, err := p.Quote(3)
	require.NoError(t, err)
	assert.Equal(t, Purchase{Qty: 3, Unit: 20, Total: 60, Currency: domain.Soul}, got)

	_, err = p.Quote(0)
	assert.Error(t, err)
	_, err = p.Quote(1 << 62)
	assert.Error(t, err)

	assert.Equal(t, int64(2), p.Affordable(59))
	assert.Zero(t, p.Affordable(-5))
}

func TestCasePrices(t *testing.T) {
	c := DefaultCatalog()
	basic, ok := c.CasePrice(gacha.TierBasic)
	require.True(t, ok)
	assert.Equal(t, int64(50), basic.Cost)
	leg, _ := c.CasePrice(gacha.TierLegendary)
	assert.Equal(t, int64(150), leg.Cost)
	_, ok = c.CasePrice("golden")
	assert.False(t, ok)
}

func TestConvert(t *testing.T) {
	c := DefaultCatalog()

	fwd, err := c.Convert(domain.Soul, domain.DreamPoints, 250)
	require.NoError(t, err)
	assert.True(t, fwd.Forward)
	assert.Equal(t, int64(250), fwd.Debited)
	assert.Equal(t, int64(2), fwd.Credited)

	rev, err := c.Convert(domain.DreamPoints, domain.Soul, 2)
	require.NoError(t, err)
	assert.False(t, rev.Forward)
	assert.Equal(t, int64(200), rev.Credited)

	_, err = c.Convert(domain.Soul, domain.DreamPoints, 99)
	assert.Error(t, err, "would credit nothing")
	_, err = c.Convert(domain.Masks, domain.Soul, 5)
	assert.Error(t, err)
	_, err = c.Convert(domain.Soul, domain.Coins, -1)
	assert.Error(t, err)
}

func TestConvertRoundTripNeverMints(t *testing.T) {
	c := DefaultCatalog()
	for _, x := range []int64{100, 101, 199, 250, 1000, 12345} {
		fwd, err := c.Convert(domain.Soul, domain.DreamPoints, x)
		require.NoError(t, err)
		back, err := c.Convert(domain.DreamPoints, domain.Soul, fwd.Credited)
		require.NoError(t, err)
		assert.LessOrEqual(t, back.Credited, x)
		if x%100 == 0 {
			assert.Equal(t, x, back.Credited)
		}
	}
}

func TestCatalogValidate(t *testing.T) {
	assert.Empty(t, DefaultCatalog().Validate())

	c := DefaultCatalog()
	c.Mask = Price{Currency: domain.Masks, Cost: 1}
	c.Exchange = append(c.Exchange, Rate{Base: domain.DreamPoints, Quote: domain.Soul, Rate: 2})
	c.Cases["golden"] = Price{Currency: domain.Soul, Cost: 1}
	assert.Len(t, c.Validate(), 3)
}
