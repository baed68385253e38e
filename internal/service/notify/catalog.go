package notify

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog keys.
const (
	KeyNewCrush   = "new_crush"
	KeyNewMatch   = "new_match"
	KeyCrushAdded = "crush_added"
	KeyMatchFound = "match_found"
	keySomeone    = "someone"
)

//go:embed messages.yaml
var defaultMessages []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Text is one string in every supported language.
type Text struct {
	EN string `yaml:"en"`
	FR string `yaml:"fr"`
}

// In returns the text for lang, falling back to English.
func (t Text) In(lang string) string {
	if lang == "fr" && t.FR != "" {
		return t.FR
	}
	return t.EN
}

type entry struct {
	Title   Text `yaml:"title"`
	Message Text `yaml:"message"`
}

// Catalog holds localized notification and response texts.
type Catalog struct {
	entries map[string]entry
}

// LoadCatalog parses a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	entries := map[string]entry{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	for _, key := range []string{KeyNewCrush, KeyNewMatch, KeyCrushAdded, KeyMatchFound, keySomeone} {
		if _, ok := entries[key]; !ok {
			return nil, fmt.Errorf("message catalog: missing key %q", key)
		}
	}
	return &Catalog{entries: entries}, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(defaultMessages)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Render fills {name} in the title and message of key.
// An empty name becomes "Someone" in each language.
func (c *Catalog) Render(key, name string) (title, message Text) {
	e := c.entries[key]
	someone := c.entries[keySomeone].Message
	fill := func(s, lang string) string {
		n := name
		if n == "" {
			n = someone.In(lang)
		}
		return strings.ReplaceAll(s, "{name}", n)
	}
	title = Text{EN: fill(e.Title.EN, "en"), FR: fill(e.Title.FR, "fr")}
	message = Text{EN: fill(e.Message.EN, "en"), FR: fill(e.Message.FR, "fr")}
	return title, message
}
