package srs

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-fsrs/internal/domain"
)

// ParameterOptimizer fits scheduler parameters to a user's review history.
type ParameterOptimizer interface {
	Optimize(ctx context.Context, userID uuid.UUID, history []*domain.ReviewLogEntry) (Params, error)
}

// defaultsOptimizer is a ParameterOptimizer that ignores history and always
// returns a fixed parameter set.
type defaultsOptimizer struct {
	params Params
}

// NewDefaultsOptimizer returns an optimizer that always yields params.
// Per-user fitting is not implemented; this is the extension point for it.
func NewDefaultsOptimizer(params Params) ParameterOptimizer {
	return &defaultsOptimizer{params: params}
}

// Optimize implements ParameterOptimizer.Optimize
func (o *defaultsOptimizer) Optimize(
	ctx context.Context,
	userID uuid.UUID,
	history []*domain.ReviewLogEntry,
) (Params, error) {
	if err := ctx.Err(); err != nil {
		return Params{}, err
	}
	return o.params, nil
}
