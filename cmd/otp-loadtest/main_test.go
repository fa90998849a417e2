package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestRunPhaseCountsOutcomes(t *testing.T) {
	stats := runPhase(100, 4, func(i int, _ *rand.Rand) (string, error) {
		if i%2 == 0 {
			return "verified", nil
		}
		return "invalid", nil
	})

	assert.Equal(t, 100, stats.ops)
	assert.Equal(t, int64(0), stats.failures)
	assert.Equal(t, 50, stats.outcomes["verified"])
	assert.Equal(t, 50, stats.outcomes["invalid"])
}
