package core

import (
	"maps"

	"github.com/huangsam/pulse/schema"
)

// WeightPolicy maps categories to score weights. Categories without an entry
// use schema.DefaultWeight.
type WeightPolicy struct {
	weights map[schema.Category]float64
}

// NewWeightPolicy validates and copies the given weights.
// Negative, NaN and infinite weights are rejected so that scores stay non-negative numbers.
func NewWeightPolicy(weights map[schema.Category]float64) (WeightPolicy, error) {
	copied := make(map[schema.Category]float64, len(weights))
	for c, w := range weights {
		if err := schema.ValidateWeight(c, w); err != nil {
			return WeightPolicy{}, err
		}
		copied[c] = w
	}
	return WeightPolicy{weights: copied}, nil
}

// DefaultWeightPolicy weighs every category with schema.DefaultWeight.
func DefaultWeightPolicy() WeightPolicy {
	return WeightPolicy{}
}

// Weight returns the weight for a category.
func (p WeightPolicy) Weight(c schema.Category) float64 {
	if w, ok := p.weights[c]; ok {
		return w
	}
	return schema.DefaultWeight
}

// Weights returns the effective weight of every known category.
func (p WeightPolicy) Weights() map[schema.Category]float64 {
	out := make(map[schema.Category]float64, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		out[c] = p.Weight(c)
	}
	maps.Copy(out, p.weights)
	return out
}

// countByCategory groups in-range events by category. Events of unknown categories are ignored.
func countByCategory(events []schema.EventRecord, rng schema.DateRange) map[schema.Category]int {
	counts := make(map[schema.Category]int, len(schema.AllCategories))
	for _, e := range events {
		if !e.Category.IsKnown() || !rng.Contains(e.Timestamp) {
			continue
		}
		counts[e.Category]++
	}
	return counts
}

// ScoreCategories computes one score per known category as count(events in range) * weight.
// Grouping happens before multiplication, so the result does not depend on event order.
func ScoreCategories(events []schema.EventRecord, rng schema.DateRange, policy WeightPolicy) ([]schema.CategoryScore, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	counts := countByCategory(events, rng)
	scores := make([]schema.CategoryScore, 0, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		weight := policy.Weight(c)
		scores = append(scores, schema.CategoryScore{
			Category: c,
			Value:    float64(counts[c]) * weight,
			Count:    counts[c],
			Weight:   weight,
		})
	}
	return scores, nil
}
