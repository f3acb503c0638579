// Package catalog holds the read-only set of quest definitions loaded at
// process start.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"xquest/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed quests.yaml
var builtin []byte

var ErrInvalidCatalog = errors.New("invalid quest catalog")

type Catalog struct {
	quests []model.Quest
	byID   map[string]int
}

type document struct {
	Quests []model.Quest `yaml:"quests"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("builtin quest catalog: %v", err))
	}
	return c
}

// Load reads the catalog at path, or the builtin one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quest catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode quest catalog: %w", err)
	}

	return New(doc.Quests)
}

func New(quests []model.Quest) (*Catalog, error) {
	c := &Catalog{
		quests: make([]model.Quest, len(quests)),
		byID:   make(map[string]int, len(quests)),
	}

	for i, q := range quests {
		if err := validate(q); err != nil {
			return nil, err
		}
		if _, ok := c.byID[q.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate quest id %q", ErrInvalidCatalog, q.ID)
		}
		c.quests[i] = q
		c.byID[q.ID] = i
	}

	return c, nil
}

func validate(q model.Quest) error {
	if q.ID == "" {
		return fmt.Errorf("%w: quest without id", ErrInvalidCatalog)
	}
	if q.XP <= 0 {
		return fmt.Errorf("%w: quest %q: xp must be positive", ErrInvalidCatalog, q.ID)
	}
	if q.TargetPostID != "" && q.TargetUserID != "" {
		return fmt.Errorf("%w: quest %q: both target_post_id and target_user_id set", ErrInvalidCatalog, q.ID)
	}

	switch q.Type {
	case model.QuestTypeLike, model.QuestTypeRetweet:
		if q.TargetPostID == "" {
			return fmt.Errorf("%w: quest %q: target_post_id required for %s", ErrInvalidCatalog, q.ID, q.Type)
		}
	case model.QuestTypeFollow:
		if q.TargetUserID == "" {
			return fmt.Errorf("%w: quest %q: target_user_id required for %s", ErrInvalidCatalog, q.ID, q.Type)
		}
	default:
		// Unknown types are kept so the catalog stays extensible; the
		// verifier rejects them at verify time.
		if q.TargetPostID == "" && q.TargetUserID == "" {
			return fmt.Errorf("%w: quest %q: no target", ErrInvalidCatalog, q.ID)
		}
	}

	return nil
}

// Get looks a quest up by id.
func (c *Catalog) Get(id string) (model.Quest, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Quest{}, false
	}
	return c.quests[i], true
}

// All returns the quests in catalog order. The slice is a copy.
func (c *Catalog) All() []model.Quest {
	out := make([]model.Quest, len(c.quests))
	copy(out, c.quests)
	return out
}

func (c *Catalog) Len() int {
	return len(c.quests)
}
