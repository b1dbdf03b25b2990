package store

import (
	"context"
	"fmt"
	"time"

	"github.com/truonghoc/studio/internal/model"
)

// ExportGenerations builds the export document for generations matching f.
func (s *Store) ExportGenerations(ctx context.Context, f GenerationFilter) (*model.GenerationExport, error) {
	gens, err := s.ListGenerations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	exp := &model.GenerationExport{
		ExportedAt:   time.Now().UTC(),
		ByCapability: make(map[model.Capability]int),
		Generations:  gens,
	}
	if exp.Generations == nil {
		exp.Generations = []model.Generation{}
	}
	for _, g := range gens {
		exp.Total++
		exp.ByCapability[g.Capability]++
		switch g.Status {
		case model.GenerationSucceeded:
			exp.Succeeded++
		case model.GenerationFailed:
			exp.Failed++
		}
	}
	return exp, nil
}
