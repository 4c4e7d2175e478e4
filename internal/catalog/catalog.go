// Package catalog lists the models a user may pick from.
package catalog

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/tutorai/internal/domain"
)

// Defaults is the selection offered when no models are configured.
var Defaults = []domain.Model{
	{Name: "Qwen 2.5 72B Instruct", ID: "Qwen/Qwen2.5-72B-Instruct"},
	{Name: "Llama 3.3 70B Instruct", ID: "unsloth/Meta-Llama-3.1-8B-bnb-4bit"},
}

// Catalog is an ordered, read-only model list.
type Catalog struct {
	models []domain.Model
	byName map[string]string
}

// New builds a catalog. Entries need an id; a missing name defaults to the id.
func New(models []domain.Model) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]string, len(models))}
	seen := make(map[string]bool, len(models))
	for i, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, fmt.Errorf("model %d: id is required", i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("model %q listed twice", m.ID)
		}
		seen[m.ID] = true
		if m.Name == "" {
			m.Name = m.ID
		}
		c.models = append(c.models, m)
		c.byName[strings.ToLower(m.Name)] = m.ID
	}
	return c, nil
}

// Models returns a copy of the catalog entries in order.
func (c *Catalog) Models() []domain.Model {
	out := make([]domain.Model, len(c.models))
	copy(out, c.models)
	return out
}

// Default returns the first entry's id, or "" for an empty catalog.
func (c *Catalog) Default() string {
	if len(c.models) == 0 {
		return ""
	}
	return c.models[0].ID
}

// Resolve maps a display name to its model id. Ids and unknown values are
// returned trimmed but otherwise unchanged.
func (c *Catalog) Resolve(nameOrID string) string {
	v := strings.TrimSpace(nameOrID)
	if id, ok := c.byName[strings.ToLower(v)]; ok {
		return id
	}
	return v
}
