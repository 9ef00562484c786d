package graph

import (
	"context"
	"fmt"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// ReachabilityDiff compares the in-memory reach of one entity with the
// reach the backend reports for the same hop bound
type ReachabilityDiff struct {
	ID      string   `json:"id"`
	Hops    int      `json:"hops"`
	Local   int      `json:"local"`
	Missing []string `json:"missing,omitempty"` // reachable in memory, absent from the backend
	Extra   []string `json:"extra,omitempty"`   // reported by the backend only
}

// InSync reports whether both sides agree
func (d *ReachabilityDiff) InSync() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0
}

// VerifyReachability checks that an exported graph still matches g for id.
// A backend holding an older or partial export shows up as Missing or Extra.
func VerifyReachability(ctx context.Context, backend Backend, g *DependencyGraph, id string, hops int) (*ReachabilityDiff, error) {
	if !g.HasNode(id) {
		return nil, fmt.Errorf("entity %s is not in the graph", id)
	}
	if hops < 1 {
		hops = 1
	}

	local := g.DescendantsWithin(id, hops)
	remote, err := backend.ReachableWithin(ctx, id, hops, models.AllRelationshipKinds)
	if err != nil {
		return nil, err
	}

	diff := &ReachabilityDiff{ID: id, Hops: hops, Local: len(local)}
	inRemote := make(map[string]bool, len(remote))
	for _, r := range remote {
		inRemote[r] = true
	}
	inLocal := make(map[string]bool, len(local))
	for _, l := range local {
		inLocal[l] = true
		if !inRemote[l] {
			diff.Missing = append(diff.Missing, l)
		}
	}
	for _, r := range remote {
		if !inLocal[r] {
			diff.Extra = append(diff.Extra, r)
		}
	}
	return diff, nil
}
