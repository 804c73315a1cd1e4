package blocks

import (
	"fmt"
	"sort"
	"sync"
)

// Named stream policies shipped with DefaultCatalog.
const (
	BasePolicy      = "base"
	PortfolioPolicy = "portfolio"
)

// Policy names the whitelist of tags permitted in one page type's stream field.
type Policy struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Catalog owns every known variant and the named policies built from them.
// New policies are defined by listing tags; no registry or validator code changes.
type Catalog struct {
	mu       sync.RWMutex
	variants map[string]Variant
	policies map[string]Policy
	regs     map[string]*Registry
}

func NewCatalog() *Catalog {
	return &Catalog{
		variants: make(map[string]Variant),
		policies: make(map[string]Policy),
		regs:     make(map[string]*Registry),
	}
}

// Add makes a variant available to policies. Duplicate tags are rejected.
func (c *Catalog) Add(v Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.Tag == "" {
		return fmt.Errorf("blocks: variant tag is empty")
	}
	if _, ok := c.variants[v.Tag]; ok {
		return fmt.Errorf("blocks: variant %q already in catalog", v.Tag)
	}
	c.variants[v.Tag] = v
	return nil
}

// DefinePolicy builds the registry for name from the listed tags.
func (c *Catalog) DefinePolicy(name string, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		return fmt.Errorf("blocks: policy name is empty")
	}
	if _, ok := c.policies[name]; ok {
		return fmt.Errorf("blocks: policy %q already defined", name)
	}
	reg := NewRegistry(name)
	for _, tag := range tags {
		v, ok := c.variants[tag]
		if !ok {
			return fmt.Errorf("blocks: policy %q: %w", name, &UnknownVariantError{Tag: tag, Index: -1, Registry: name})
		}
		if err := reg.Register(v); err != nil {
			return err
		}
	}
	c.policies[name] = Policy{Name: name, Tags: append([]string(nil), tags...)}
	c.regs[name] = reg
	return nil
}

// Registry returns the registry built for a policy.
func (c *Catalog) Registry(name string) (*Registry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.regs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return reg, nil
}

func (c *Catalog) Policy(name string) (Policy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.policies[name]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return p, nil
}

// Policies lists policy names in sorted order.
func (c *Catalog) Policies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.policies))
	for n := range c.policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// VariantDescription is the editor-facing view of one permitted variant.
type VariantDescription struct {
	Tag      string      `json:"type"`
	Label    string      `json:"label"`
	Icon     string      `json:"icon,omitempty"`
	Template string      `json:"template"`
	Schema   FieldSchema `json:"schema"`
}

// Describe returns the closed list of variants a policy permits, with their schemas.
func (c *Catalog) Describe(name string) ([]VariantDescription, error) {
	reg, err := c.Registry(name)
	if err != nil {
		return nil, err
	}
	out := make([]VariantDescription, 0, len(reg.order))
	for _, tag := range reg.order {
		v := reg.variants[tag]
		out = append(out, VariantDescription{
			Tag:      v.Tag,
			Label:    v.Label,
			Icon:     v.Icon,
			Template: v.Template,
			Schema:   v.Schema.Schema(),
		})
	}
	return out, nil
}

// DefaultCatalog holds the built-in variants and the base and portfolio policies.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, v := range BuiltinVariants() {
		if err := c.Add(v); err != nil {
			panic(err)
		}
	}
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(c.DefinePolicy(BasePolicy, HeadingTag, ParagraphTag, ImageTag, EmbedTag))
	must(c.DefinePolicy(PortfolioPolicy, HeadingTag, ParagraphTag, ImageTag, CardTag))
	return c
}
