package graph

import (
	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

// WeightTable maps each relationship kind to its coupling strength in [0,1]
type WeightTable map[models.RelationshipKind]float64

// DefaultWeights returns extends=1.0, invokes=0.9, imports=0.8, defined_in=0.5
func DefaultWeights() WeightTable {
	return WeightTable{
		models.RelExtends:   1.0,
		models.RelInvokes:   0.9,
		models.RelImports:   0.8,
		models.RelDefinedIn: 0.5,
	}
}

// Validate checks that every relationship kind has a weight in [0,1]
func (w WeightTable) Validate() error {
	for _, kind := range models.AllRelationshipKinds {
		weight, ok := w[kind]
		if !ok {
			return errors.ValidationErrorf("missing weight for relationship kind %q", kind)
		}
		if weight < 0 || weight > 1 {
			return errors.ValidationErrorf("weight %.3f for %q is outside [0,1]", weight, kind)
		}
	}
	return nil
}

// Weight returns the weight for kind and whether the table defines it
func (w WeightTable) Weight(kind models.RelationshipKind) (float64, bool) {
	weight, ok := w[kind]
	return weight, ok
}

// WithOverrides returns a copy of w with the given weights replaced
func (w WeightTable) WithOverrides(overrides map[string]float64) WeightTable {
	out := make(WeightTable, len(w))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[models.RelationshipKind(k)] = v
	}
	return out
}
