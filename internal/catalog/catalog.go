package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind partitions the catalog into prompt (black) and response (white) cards.
// The numeric values match the card file's "type" field.
type Kind int

const (
	Prompt   Kind = 0
	Response Kind = 1
)

// Card is an immutable catalog entry. Game code references cards by ID only.
type Card struct {
	ID   uint32 `json:"id"`
	Text string `json:"text"`
	Kind Kind   `json:"type"`
}

// Catalog is the read-only card lookup service, built once before the
// server accepts connections.
type Catalog struct {
	byID    map[uint32]Card
	prompts []uint32
	answers []uint32
}

type cardFile struct {
	Cards []Card `json:"cards"`
}

// Load reads a card catalog from a JSON file of the form {"cards": [...]}.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card catalog: %w", err)
	}

	var file cardFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse card catalog: %w", err)
	}
	return New(file.Cards)
}

// New builds a catalog from an already-parsed card list.
func New(cards []Card) (*Catalog, error) {
	c := &Catalog{byID: make(map[uint32]Card, len(cards))}
	for _, card := range cards {
		if _, dup := c.byID[card.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %d", card.ID)
		}
		c.byID[card.ID] = card
		switch card.Kind {
		case Prompt:
			c.prompts = append(c.prompts, card.ID)
		case Response:
			c.answers = append(c.answers, card.ID)
		default:
			return nil, fmt.Errorf("card %d has unknown kind %d", card.ID, card.Kind)
		}
	}
	return c, nil
}

// ByID looks up one card.
func (c *Catalog) ByID(id uint32) (Card, bool) {
	card, ok := c.byID[id]
	return card, ok
}

// OfKind returns a copy of all card ids of the given kind.
func (c *Catalog) OfKind(k Kind) []uint32 {
	var src []uint32
	if k == Prompt {
		src = c.prompts
	} else {
		src = c.answers
	}
	ids := make([]uint32, len(src))
	copy(ids, src)
	return ids
}

// Len reports the total number of cards.
func (c *Catalog) Len() int {
	return len(c.byID)
}
