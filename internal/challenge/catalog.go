package challenge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

//go:embed challenges.json
var bundledChallenges []byte

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("challenge_kind", func(fl validator.FieldLevel) bool {
		_, ok := knownKinds[Kind(fl.Field().String())]
		return ok
	})
	return v
}

// Catalog is the immutable, non-empty list of challenge definitions.
type Catalog struct {
	defs []Definition
}

// NewCatalog validates defs and returns a catalog holding its own copy of them.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}
	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidDefinition, i, err)
		}
	}
	out := make([]Definition, len(defs))
	copy(out, defs)
	return &Catalog{defs: out}, nil
}

// ParseCatalog decodes a JSON array of definitions.
func ParseCatalog(data []byte) (*Catalog, error) {
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode challenge catalog: %w", err)
	}
	return NewCatalog(defs)
}

// LoadBundledCatalog returns the catalog compiled into the binary.
func LoadBundledCatalog() (*Catalog, error) {
	return ParseCatalog(bundledChallenges)
}

// LoadCatalogFile reads a catalog from a JSON file on disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read challenge catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// At returns the i-th definition.
func (c *Catalog) At(i int) Definition {
	return c.defs[i]
}

// All returns a copy of every definition so callers cannot mutate the catalog.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Contains reports whether def is one of the catalog entries.
func (c *Catalog) Contains(def Definition) bool {
	for _, d := range c.defs {
		if d == def {
			return true
		}
	}
	return false
}
