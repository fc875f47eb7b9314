// Package config loads currency and resource definitions from CUE files.
//
// Definitions are configuration, not log state: currencies feed the
// ledger's supply caps directly, while resources are seeded through the
// write path so that every replica converges on the same definitions.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/QalbeHabib/autobase-smart-contract/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

// Currency is a declared currency definition.
type Currency struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Decimals  int    `json:"decimals"`
	MaxSupply int64  `json:"maxSupply"`
}

// Resource is a declared resource definition.
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxSupply   int64  `json:"maxSupply"`
}

// Definitions is the decoded content of a definitions file.
type Definitions struct {
	Currencies []Currency `json:"currencies"`
	Resources  []Resource `json:"resources"`
}

// Parse validates CUE source against the embedded schema and decodes it.
func Parse(source string) (*Definitions, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("definitions schema: %s", cueerrors.Details(err, nil))
	}

	doc := ctx.CompileString(source, cue.Filename("definitions.cue"))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("parse definitions: %s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate definitions: %s", cueerrors.Details(err, nil))
	}

	var defs Definitions
	if err := unified.Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode definitions: %s", cueerrors.Details(err, nil))
	}
	return &defs, nil
}

// Load reads and parses a definitions file.
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	return Parse(string(data))
}

// CurrencyConfigs converts declared currencies into ledger configurations.
func (d *Definitions) CurrencyConfigs() []ledger.Config {
	out := make([]ledger.Config, 0, len(d.Currencies))
	for _, c := range d.Currencies {
		out = append(out, ledger.Config{
			ID:        c.ID,
			Name:      c.Name,
			Symbol:    c.Symbol,
			Decimals:  c.Decimals,
			MaxSupply: c.MaxSupply,
		})
	}
	return out
}
