package milp

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/samber/lo"
)

var highsGap = regexp.MustCompile(`Gap\s+([0-9.eE+-]+)%`)

type highsSolver struct{}

func NewHighsSolver() Solver {
	return &highsSolver{}
}

func (solver *highsSolver) Solve(ctx context.Context, model *Model, params Parameters) (*Solution, error) {
	if err := checkModel(model); err != nil {
		return nil, err
	}
	if model.HasHints() {
		log.Warningf("highs ignores the %v warm-start hints of %v", len(model.Hints()), model.Name())
	}

	ws, err := newWorkspace()
	if err != nil {
		return nil, err
	}
	defer ws.close()

	modelPath, err := ws.writeModel(model)
	if err != nil {
		return nil, fmt.Errorf("cannot write highs model: %w", err)
	}
	solutionPath := ws.path("solution.txt")

	options := []string{"log_to_console = true"}
	if params.TimeLimit > 0 {
		options = append(options, fmt.Sprintf("time_limit = %v", params.TimeLimit.Seconds()))
	}
	if params.Heuristics >= 0 {
		options = append(options, fmt.Sprintf("mip_heuristic_effort = %v", params.Heuristics))
	}
	if params.MemoryLimit > 0 {
		log.Warningf("highs ignores the memory limit of %v GB", params.MemoryLimit)
	}
	optionsPath := ws.path("highs.opt")
	if err := os.WriteFile(optionsPath, []byte(strings.Join(options, "\n")+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("cannot write highs options: %w", err)
	}

	execution, err := run(ctx, "highs", getExecutablePath("highsPath", "highs"),
		"--model_file", modelPath,
		"--solution_file", solutionPath,
		"--options_file", optionsPath,
	)
	if err != nil {
		return nil, err
	}
	echoLog("highs", params, execution.stdout)

	content, err := os.ReadFile(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("an error occurred during highs execution: no solution file (exit code %v) : %v", execution.exitCode, execution.stderr)
	}

	status, values, err := parseHighsSolution(string(content), model)
	if err != nil {
		return nil, err
	}

	var gap *float64
	if match := highsGap.FindStringSubmatch(execution.stdout); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			gap = lo.ToPtr(value / 100)
		}
	}
	return newSolution(status, model, values, execution.runtime, gap), nil
}

// parseHighsSolution reads the raw solution file written by --solution_file.
func parseHighsSolution(content string, model *Model) (Status, []float64, error) {
	lines := nonEmptyLines(content)

	modelStatus, primalStatus := "", ""
	columns, columnsAt := 0, -1
	for i, line := range lines {
		switch {
		case line == "Model status" && i+1 < len(lines):
			modelStatus = lines[i+1]
		case line == "# Primal solution values" && i+1 < len(lines):
			primalStatus = lines[i+1]
		case strings.HasPrefix(line, "# Columns") && columnsAt < 0:
			count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err != nil {
				return 0, nil, fmt.Errorf("invalid highs column count %q: %w", line, err)
			}
			columns, columnsAt = count, i+1
		}
	}

	var status Status
	switch {
	case modelStatus == "Optimal":
		status = StatusOptimal
	case strings.Contains(modelStatus, "nfeasible"):
		return StatusInfeasible, nil, nil
	case strings.Contains(modelStatus, "nbounded"):
		return 0, nil, fmt.Errorf("highs reported an unbounded model")
	case strings.Contains(modelStatus, "limit"):
		status = StatusFeasible
	default:
		return 0, nil, fmt.Errorf("unrecognized highs model status %q", modelStatus)
	}

	if primalStatus != "Feasible" || columnsAt < 0 || columnsAt+columns > len(lines) {
		if status == StatusOptimal {
			return 0, nil, fmt.Errorf("highs reported optimality without primal values")
		}
		return StatusNoIncumbent, nil, nil
	}

	values, err := parseValueLines(lines[columnsAt:columnsAt+columns], model)
	if err != nil {
		return 0, nil, err
	}
	return status, values, nil
}
