package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const Depot = 0

var validate = validator.New(validator.WithRequiredStructEnabled())

// RawModelInput mirrors the instance files: {"distances", "V_P", "d"}.
type RawModelInput struct {
	Name      string      `mapstructure:"name"`
	Distances [][]float64 `mapstructure:"distances" validate:"required,min=3,dive,required"`
	Clusters  [][]int     `mapstructure:"V_P" validate:"required,min=1,dive,required,min=1,dive,min=0"`
	D         int         `mapstructure:"d" validate:"min=0"`
}

type ModelInput struct {
	Name      string
	Distances [][]float64
	Clusters  [][]int
	D         int
	ClusterOf []int   // ClusterOf[v] is the index of the cluster holding v
	Members   [][]int // Members[p] is Clusters[p] without the depot
}

func (input ModelInput) Nodes() int {
	return len(input.Distances)
}

func (input ModelInput) TotalClusters() int {
	return len(input.Clusters)
}

// Late reports whether every node of cluster p must precede every node of cluster q.
func (input ModelInput) Late(p, q int) bool {
	return q > p+input.D
}

// before counts the non-depot nodes that must precede any node of cluster p.
func (input ModelInput) before(p int) int {
	return lo.Sum(lo.Map(input.Members[:max(0, p-input.D)], func(members []int, _ int) int {
		return len(members)
	}))
}

// after counts the non-depot nodes that must follow any node of cluster p.
func (input ModelInput) after(p int) int {
	from := min(len(input.Members), p+input.D+1)
	return lo.Sum(lo.Map(input.Members[from:], func(members []int, _ int) int {
		return len(members)
	}))
}

func InputFromJson(file string) (ModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ModelInput{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return ModelInput{}, err
	}

	var rawInput RawModelInput
	if err := mapstructure.Decode(inputJson, &rawInput); err != nil {
		return ModelInput{}, &DataInvariantError{Reason: fmt.Sprintf("malformed instance: %v", err)}
	}
	if rawInput.Name == "" {
		rawInput.Name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	return ProcessRawInput(rawInput)
}

func ProcessRawInput(rawInput RawModelInput) (ModelInput, error) {
	if err := validate.Struct(rawInput); err != nil {
		return ModelInput{}, &DataInvariantError{Reason: err.Error()}
	}
	return NewModelInput(rawInput.Name, rawInput.Distances, rawInput.Clusters, rawInput.D)
}

// NewModelInput checks the instance invariants and derives the cluster lookups.
func NewModelInput(name string, distances [][]float64, clusters [][]int, d int) (ModelInput, error) {
	input := ModelInput{
		Name:      name,
		Distances: distances,
		Clusters:  clusters,
		D:         d,
	}
	if err := input.Validate(); err != nil {
		return ModelInput{}, err
	}

	input.ClusterOf = make([]int, len(distances))
	for p, cluster := range clusters {
		for _, node := range cluster {
			input.ClusterOf[node] = p
		}
	}
	input.Members = lo.Map(clusters, func(cluster []int, _ int) []int {
		return lo.Without(cluster, Depot)
	})
	return input, nil
}

// withLookups validates input and returns it with ClusterOf and Members,
// deriving them again when input was assembled as a literal.
func (input ModelInput) withLookups() (ModelInput, error) {
	if len(input.ClusterOf) == input.Nodes() && len(input.Members) == input.TotalClusters() {
		return input, input.Validate()
	}
	return NewModelInput(input.Name, input.Distances, input.Clusters, input.D)
}

func (input ModelInput) Validate() error {
	invalid := func(format string, args ...any) error {
		return &DataInvariantError{Reason: fmt.Sprintf(format, args...)}
	}

	//** Distances
	n := len(input.Distances)
	if n < 3 {
		return invalid("at least 3 nodes are required, got %v", n)
	}
	for i, row := range input.Distances {
		if len(row) != n {
			return invalid("distance row %v has %v entries, expected %v", i, len(row), n)
		}
		for j, distance := range row {
			if i == j {
				continue
			}
			if math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
				return invalid("distance (%v, %v) = %v is not a non-negative finite number", i, j, distance)
			}
		}
	}

	//** Clusters
	if len(input.Clusters) == 0 {
		return invalid("at least one cluster is required")
	}
	seen := make([]bool, n)
	for p, cluster := range input.Clusters {
		if len(cluster) == 0 {
			return invalid("cluster %v is empty", p)
		}
		for _, node := range cluster {
			if node < 0 || node >= n {
				return invalid("cluster %v holds node %v outside [0, %v)", p, node, n)
			}
			if seen[node] {
				return invalid("node %v belongs to more than one cluster", node)
			}
			seen[node] = true
		}
	}
	if missing, ok := lo.Find(lo.Range(n), func(node int) bool { return !seen[node] }); ok {
		return invalid("node %v belongs to no cluster", missing)
	}
	if !lo.Contains(input.Clusters[0], Depot) {
		return invalid("the depot must belong to cluster 0")
	}

	//** Slack
	if input.D < 0 || input.D >= len(input.Clusters) {
		return invalid("slack d = %v must lie in [0, %v)", input.D, len(input.Clusters))
	}
	return nil
}
