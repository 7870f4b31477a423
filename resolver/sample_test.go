package resolver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestWeightedSampleFrequencyMatchesWeights reproduces scenario 3: two
// endpoints with weights 1 and 3 sampled 10k times at size 1; the weight-3
// endpoint should win with frequency ~0.75.
func TestWeightedSampleFrequencyMatchesWeights(t *testing.T) {
	endpoints := []Endpoint{
		{URL: "http://h1/submit", Weight: 1},
		{URL: "http://h2/submit", Weight: 3},
	}

	rng := rand.New(rand.NewSource(1))
	h2Count := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		sampled := weightedSampleRand(endpoints, 1, rng.Float64)
		if sampled[0].URL == "http://h2/submit" {
			h2Count++
		}
	}

	freq := float64(h2Count) / float64(trials)
	assert.InDelta(t, 0.75, freq, 0.02)
}

func TestWeightedSampleReturnsAllWhenKExceedsLength(t *testing.T) {
	endpoints := []Endpoint{{URL: "a", Weight: 1}, {URL: "b", Weight: 1}}
	got := WeightedSample(endpoints, 5)
	assert.Len(t, got, 2)
}

func TestWeightedSampleNoReplacement(t *testing.T) {
	endpoints := []Endpoint{
		{URL: "a", Weight: 1}, {URL: "b", Weight: 1}, {URL: "c", Weight: 1},
	}
	got := WeightedSample(endpoints, 2)
	assert.Len(t, got, 2)
	assert.NotEqual(t, got[0].URL, got[1].URL)
}
