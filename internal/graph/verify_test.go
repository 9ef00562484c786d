package graph

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyReachability(t *testing.T) {
	g := diamond(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		hops        int
		remote      []string
		wantHops    int
		wantMissing []string
		wantExtra   []string
	}{
		{"in sync", 2, []string{"D", "C", "B"}, 2, nil, nil},
		{"stale export", 2, []string{"B", "X"}, 2, []string{"C", "D"}, []string{"X"}},
		{"hops floor at one", 0, []string{"B", "C"}, 1, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{reachable: tt.remote}
			diff, err := VerifyReachability(ctx, backend, g, "A", tt.hops)
			require.NoError(t, err)

			assert.Equal(t, tt.wantHops, backend.hops)
			assert.Equal(t, tt.wantMissing, diff.Missing)
			assert.Equal(t, tt.wantExtra, diff.Extra)
			assert.Equal(t, tt.wantMissing == nil && tt.wantExtra == nil, diff.InSync())
		})
	}
}

func TestVerifyReachability_Errors(t *testing.T) {
	g := diamond(t)

	_, err := VerifyReachability(context.Background(), &fakeBackend{}, g, "missing", 2)
	assert.Error(t, err)

	boom := stderrors.New("connection refused")
	_, err = VerifyReachability(context.Background(), &fakeBackend{reachErr: boom}, g, "A", 2)
	assert.ErrorIs(t, err, boom)
}
