package model

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
)

func TestExtractTour(t *testing.T) {
	t.Run("Single cycle", func(t *testing.T) {
		g := NewWithT(t)

		tour, err := ExtractTour(4, []Arc{{0, 2}, {1, 3}, {2, 1}, {3, 0}})

		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(tour).To(Equal([]int{0, 2, 1, 3, 0}))
	})

	t.Run("Re-extraction is deterministic", func(t *testing.T) {
		g := NewWithT(t)
		arcs := TourArcs([]int{0, 3, 1, 2, 0})

		first, err := ExtractTour(4, arcs)
		g.Expect(err).NotTo(HaveOccurred())
		second, err := ExtractTour(4, arcs)
		g.Expect(err).NotTo(HaveOccurred())

		g.Expect(first).To(Equal(second))
		g.Expect(first).To(Equal([]int{0, 3, 1, 2, 0}))
	})

	failures := map[string][]Arc{
		"Two 2-cycles":          {{0, 1}, {1, 0}, {2, 3}, {3, 2}},
		"Subtour off the depot": {{0, 1}, {1, 2}, {2, 1}, {3, 0}},
		"Missing successor":     {{0, 1}, {1, 2}, {3, 0}},
		"Two successors":        {{0, 1}, {0, 2}, {1, 0}, {2, 3}, {3, 0}},
		"Out of range":          {{0, 7}, {7, 0}},
		"No arcs":               {},
	}
	for name, arcs := range failures {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)

			tour, err := ExtractTour(4, arcs)

			g.Expect(tour).To(BeNil())
			var extractionErr *ExtractionError
			g.Expect(errors.As(err, &extractionErr)).To(BeTrue())
			g.Expect(extractionErr.Arcs).To(HaveLen(len(arcs)))
		})
	}
}

func TestSelectedArcs(t *testing.T) {
	g := NewWithT(t)
	f := mustBuild(t, lineInput(t, 1), "MTZ1", false)
	values := make([]float64, f.Model.NumVars())
	values[f.X[Arc{0, 1}]] = 0.51
	values[f.X[Arc{1, 0}]] = 0.5
	values[f.X[Arc{3, 2}]] = 1
	values[f.U[2]] = 3

	g.Expect(SelectedArcs(f, values, SelectionThreshold)).To(Equal([]Arc{{0, 1}, {3, 2}}))
}

func TestValidateTour(t *testing.T) {
	g := NewWithT(t)

	g.Expect(ValidateTour(4, []int{0, 2, 1, 3, 0})).To(BeEmpty())
	g.Expect(ValidateTour(4, []int{0, 2, 1, 0})).To(ContainSubstring("expected 5 entries"))
	g.Expect(ValidateTour(4, []int{1, 2, 0, 3, 1})).To(ContainSubstring("depot"))
	g.Expect(ValidateTour(4, []int{0, 1, 1, 3, 0})).To(ContainSubstring("repeated"))
	g.Expect(ValidateTour(4, []int{0, 1, 5, 3, 0})).To(ContainSubstring("out of range"))
}

func TestTourCostAndPrecedence(t *testing.T) {
	g := NewWithT(t)
	input := lineInput(t, 1)

	g.Expect(TourCost(input, []int{0, 1, 2, 3, 0})).To(Equal(6.0))
	g.Expect(TourCost(input, []int{0, 2, 1, 3, 0})).To(Equal(8.0))

	g.Expect(Precedes(input, []int{0, 2, 1, 3, 0})).To(BeTrue())
	g.Expect(Precedes(input, []int{0, 3, 1, 2, 0})).To(BeFalse())
	g.Expect(Precedes(lineInput(t, 3), []int{0, 3, 2, 1, 0})).To(BeTrue())
}
