package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/planpoker/go/internal/models"
)

// DecksFile is the YAML layout of DECKS_FILE:
//
//	decks:
//	  - name: hours
//	    values: ["1", "2", "4", "8", "?"]
type DecksFile struct {
	Decks []models.Deck `yaml:"decks"`
}

// LoadDecks returns the built-in decks merged with those defined in path.
// A deck in the file replaces a built-in deck of the same name.
func LoadDecks(path string) (models.DeckCatalog, error) {
	catalog := models.BuiltinDecks()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read decks file: %w", err)
	}
	var file DecksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse decks file: %w", err)
	}

	for i, d := range file.Decks {
		d.Type = models.DeckType(strings.TrimSpace(string(d.Type)))
		if d.Type == "" {
			return nil, fmt.Errorf("deck %d has no name", i)
		}
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("deck %q has no values", d.Type)
		}
		seen := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			if v == "" || seen[v] {
				return nil, fmt.Errorf("deck %q has an empty or repeated value %q", d.Type, v)
			}
			seen[v] = true
		}
		catalog[d.Type] = d
	}
	return catalog, nil
}
