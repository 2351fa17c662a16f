// Package content holds the static lesson and exercise tables.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// Phrase is one lesson entry in the target language with its explanation.
type Phrase struct {
	Target        string `yaml:"target"`
	Native        string `yaml:"native"`
	Context       string `yaml:"context"`
	Note          string `yaml:"note"`
	Pronunciation string `yaml:"pronunciation"`
}

// Topic is an ordered group of phrases.
type Topic struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Phrases []Phrase `yaml:"phrases"`
}

// Phrase returns the i-th phrase; ok is false when i is out of range.
func (t Topic) Phrase(i int) (Phrase, bool) {
	if i < 0 || i >= len(t.Phrases) {
		return Phrase{}, false
	}
	return t.Phrases[i], true
}

// Exercise is a translation task from the native language.
type Exercise struct {
	Native string `yaml:"native"`
	Target string `yaml:"target"`
	Hint   string `yaml:"hint"`
}

// Catalog is the immutable content table.
type Catalog struct {
	Topics    []Topic    `yaml:"topics"`
	Exercises []Exercise `yaml:"exercises"`

	byID map[string]int
}

// ErrInvalidCatalog is wrapped by every validation failure.
var ErrInvalidCatalog = errors.New("invalid content catalog")

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse content YAML: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Topics) == 0 {
		return fmt.Errorf("%w: no topics", ErrInvalidCatalog)
	}
	if len(c.Exercises) == 0 {
		return fmt.Errorf("%w: no exercises", ErrInvalidCatalog)
	}
	c.byID = make(map[string]int, len(c.Topics))
	for i, t := range c.Topics {
		switch {
		case t.ID == "":
			return fmt.Errorf("%w: topic %d has no id", ErrInvalidCatalog, i)
		case strings.ContainsAny(t.ID, "_| "):
			// ids travel inside button payloads
			return fmt.Errorf("%w: topic id %q must not contain '_', '|' or spaces", ErrInvalidCatalog, t.ID)
		case len(t.Phrases) == 0:
			return fmt.Errorf("%w: topic %q has no phrases", ErrInvalidCatalog, t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return fmt.Errorf("%w: duplicate topic id %q", ErrInvalidCatalog, t.ID)
		}
		c.byID[t.ID] = i
	}
	for i, e := range c.Exercises {
		if strings.TrimSpace(e.Native) == "" || strings.TrimSpace(e.Target) == "" {
			return fmt.Errorf("%w: exercise %d is incomplete", ErrInvalidCatalog, i)
		}
	}
	return nil
}

// Topic looks a topic up by id.
func (c *Catalog) Topic(id string) (Topic, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Topic{}, false
	}
	return c.Topics[i], true
}

// Len is the number of topics.
func (c *Catalog) Len() int { return len(c.Topics) }

// Title returns the display title of a topic, or the id itself when unknown.
func (c *Catalog) Title(id string) string {
	if t, ok := c.Topic(id); ok {
		return t.Title
	}
	return id
}
