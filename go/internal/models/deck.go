package models

import (
	"slices"
	"sort"
)

// DeckType names a set of allowed vote values.
type DeckType string

const (
	DeckFibonacci         DeckType = "fibonacci"
	DeckModifiedFibonacci DeckType = "modified_fibonacci"
	DeckTShirt            DeckType = "tshirt"
	DeckPowersOfTwo       DeckType = "powers_of_two"
)

// Deck is an ordered list of card values.
type Deck struct {
	Type   DeckType `json:"type" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Contains reports whether value is a card in the deck.
func (d Deck) Contains(value string) bool {
	return slices.Contains(d.Values, value)
}

// DeckCatalog resolves deck types to their card values.
type DeckCatalog map[DeckType]Deck

// BuiltinDecks returns the decks available without any configuration.
func BuiltinDecks() DeckCatalog {
	return DeckCatalog{
		DeckFibonacci: {
			Type:   DeckFibonacci,
			Values: []string{"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", "?", "☕"},
		},
		DeckModifiedFibonacci: {
			Type:   DeckModifiedFibonacci,
			Values: []string{"0", "½", "1", "2", "3", "5", "8", "13", "20", "40", "100", "?", "☕"},
		},
		DeckTShirt: {
			Type:   DeckTShirt,
			Values: []string{"XS", "S", "M", "L", "XL", "XXL", "?"},
		},
		DeckPowersOfTwo: {
			Type:   DeckPowersOfTwo,
			Values: []string{"0", "1", "2", "4", "8", "16", "32", "64", "?"},
		},
	}
}

// Lookup returns the deck for t.
func (c DeckCatalog) Lookup(t DeckType) (Deck, bool) {
	d, ok := c[t]
	if !ok || len(d.Values) == 0 {
		return Deck{}, false
	}
	return d, true
}

// Names returns the deck types in the catalog, sorted.
func (c DeckCatalog) Names() []string {
	names := make([]string, 0, len(c))
	for t := range c {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
