package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNearestNeighbourTour(t *testing.T) {
	t.Run("Line follows the clusters", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2, 3, 0}, NearestNeighbourTour(lineInput(t, 1)))
	})

	t.Run("Slack lets the tour jump ahead", func(t *testing.T) {
		// from 0 the closest node is 3, allowed once d = 2
		assert.Equal(t, []int{0, 3, 4, 2, 1, 0}, NearestNeighbourTour(mixedInput(t, 2)))
	})

	for d := range 3 {
		t.Run(fmt.Sprintf("Feasible for d=%v", d), func(t *testing.T) {
			input := mixedInput(t, d)
			tour := NearestNeighbourTour(input)

			assert.Empty(t, ValidateTour(input.Nodes(), tour))
			assert.True(t, Precedes(input, tour))
		})
	}

	t.Run("Literal input without lookups", func(t *testing.T) {
		reference := mixedInput(t, 2)
		literal := ModelInput{Distances: reference.Distances, Clusters: reference.Clusters, D: 2}

		assert.Equal(t, NearestNeighbourTour(reference), NearestNeighbourTour(literal))
	})
}
