package deck

import (
	"math/rand"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/catalog"
)

// Deck owns the two draw pools and their discard piles. All entries are
// catalog card ids; the deck never copies card data. Across pools, discards
// and cards in play, every catalog id of a kind appears exactly once.
//
// Discards are never reshuffled back into the pools. A long game can run
// the response pool dry, after which hands come up short.
type Deck struct {
	prompts         []uint32
	responses       []uint32
	promptDiscard   []uint32
	responseDiscard []uint32
}

// New partitions the catalog into the two pools. Discards start empty.
func New(c *catalog.Catalog) *Deck {
	return &Deck{
		prompts:   c.OfKind(catalog.Prompt),
		responses: c.OfKind(catalog.Response),
	}
}

// Shuffle uniformly permutes both pools independently.
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.prompts), func(i, j int) {
		d.prompts[i], d.prompts[j] = d.prompts[j], d.prompts[i]
	})
	rand.Shuffle(len(d.responses), func(i, j int) {
		d.responses[i], d.responses[j] = d.responses[j], d.responses[i]
	})
}

// Draw removes up to count ids from the tail of the pool. A short pool
// yields fewer ids, not an error.
func (d *Deck) Draw(k catalog.Kind, count int) []uint32 {
	pool := &d.responses
	if k == catalog.Prompt {
		pool = &d.prompts
	}

	if count > len(*pool) {
		count = len(*pool)
	}
	drawn := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		n := len(*pool)
		drawn = append(drawn, (*pool)[n-1])
		*pool = (*pool)[:n-1]
	}
	return drawn
}

// DrawPrompt pops one prompt card. An empty pool is a fault the round
// cannot proceed past, so it is an error rather than a short draw.
func (d *Deck) DrawPrompt() (uint32, error) {
	if len(d.prompts) == 0 {
		return 0, apperrors.ErrDeckExhausted
	}
	n := len(d.prompts)
	id := d.prompts[n-1]
	d.prompts = d.prompts[:n-1]
	return id, nil
}

// DiscardPrompt retires a played prompt card.
func (d *Deck) DiscardPrompt(id uint32) {
	d.promptDiscard = append(d.promptDiscard, id)
}

// DiscardResponses retires played response cards.
func (d *Deck) DiscardResponses(ids []uint32) {
	d.responseDiscard = append(d.responseDiscard, ids...)
}

// Remaining reports the live pool size for a kind.
func (d *Deck) Remaining(k catalog.Kind) int {
	if k == catalog.Prompt {
		return len(d.prompts)
	}
	return len(d.responses)
}

// Discarded reports the discard pile size for a kind.
func (d *Deck) Discarded(k catalog.Kind) int {
	if k == catalog.Prompt {
		return len(d.promptDiscard)
	}
	return len(d.responseDiscard)
}
