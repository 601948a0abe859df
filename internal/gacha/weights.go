package gacha

import "github.com/kinger55555/thenailcasino/internal/domain"

// WeightEntry is one row of the published drop table.
type WeightEntry struct {
	NailID      string        `json:"nail_id"`
	Name        string        `json:"name"`
	Rarity      domain.Rarity `json:"rarity"`
	OrderIndex  int           `json:"order_index"`
	Weight      int           `json:"weight"`
	Probability float64       `json:"probability"`
}

// WeightTable returns the normalized drop probabilities of a tier in catalog order.
func WeightTable(catalog []domain.NailDefinition, tier CaseTier, p LootParams) []WeightEntry {
	pool := Pool(catalog, tier)
	out := make([]WeightEntry, len(pool))
	total := 0
	for i, n := range pool {
		w := Weight(n.OrderIndex, p.BaseWeight, p.Decay)
		total += w
		out[i] = WeightEntry{NailID: n.ID, Name: n.Name, Rarity: n.Rarity, OrderIndex: n.OrderIndex, Weight: w}
	}
	for i := range out {
		out[i].Probability = float64(out[i].Weight) / float64(total)
	}
	return out
}
