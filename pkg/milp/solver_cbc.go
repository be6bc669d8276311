package milp

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/samber/lo"
)

// Objective reported by cbc when it stopped without an integer solution.
const cbcNoSolutionObjective = 1e49

type cbcSolver struct{}

func NewCbcSolver() Solver {
	return &cbcSolver{}
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model, params Parameters) (*Solution, error) {
	if err := checkModel(model); err != nil {
		return nil, err
	}

	ws, err := newWorkspace()
	if err != nil {
		return nil, err
	}
	defer ws.close()

	modelPath, err := ws.writeModel(model)
	if err != nil {
		return nil, fmt.Errorf("cannot write cbc model: %w", err)
	}
	solutionPath := ws.path("solution.txt")

	startPath := ""
	if model.HasHints() && !model.IsContinuous() {
		startPath, err = ws.writeHints("start.txt", model, []string{"Stopped on iterations - objective value 0"}, func(index int, name string, value float64) string {
			return fmt.Sprintf("%v %v %v 0", index, name, formatNumber(value))
		})
		if err != nil {
			return nil, fmt.Errorf("cannot write cbc start: %w", err)
		}
	}
	args := cbcArguments(params, modelPath, solutionPath, startPath)

	execution, err := run(ctx, "cbc", getExecutablePath("cbcPath", "cbc"), args...)
	if err != nil {
		return nil, err
	}
	echoLog("cbc", params, execution.stdout)

	content, err := os.ReadFile(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("an error occurred during cbc execution: no solution file (exit code %v) : %v", execution.exitCode, execution.stderr)
	}

	status, values, err := parseCbcSolution(string(content), model)
	if err != nil {
		return nil, err
	}
	return newSolution(status, model, values, execution.runtime, nil), nil
}

// cbcArguments lists the cbc command sequence. cbc has no heuristic-effort
// or memory-limit option, so those parameters are reported and skipped.
func cbcArguments(params Parameters, modelPath, solutionPath, startPath string) []string {
	if ignored := cbcIgnoredParameters(params); len(ignored) > 0 {
		log.Warningf("cbc ignores the parameters %v", strings.Join(ignored, ", "))
	}

	args := []string{modelPath}
	if startPath != "" {
		args = append(args, "mipstart", startPath)
	}
	if params.TimeLimit > 0 {
		args = append(args, "sec", fmt.Sprintf("%v", params.TimeLimit.Seconds()))
	}
	return append(args, "log", strconv.Itoa(min(params.LogVerbosity, 4)), "solve", "solu", solutionPath)
}

func cbcIgnoredParameters(params Parameters) []string {
	ignored := []string{}
	if params.Heuristics >= 0 {
		ignored = append(ignored, fmt.Sprintf("heuristics=%v", params.Heuristics))
	}
	if params.MemoryLimit > 0 {
		ignored = append(ignored, fmt.Sprintf("memoryLimit=%v", params.MemoryLimit))
	}
	return ignored
}

// parseCbcSolution reads cbc's "solu" output: a status header followed by
// "index name value reducedCost" rows.
func parseCbcSolution(content string, model *Model) (Status, []float64, error) {
	lines := nonEmptyLines(content)
	if len(lines) == 0 {
		return 0, nil, fmt.Errorf("empty cbc solution file")
	}
	header := lines[0]

	var status Status
	switch {
	case strings.HasPrefix(header, "Optimal"):
		status = StatusOptimal
	case strings.Contains(header, "nfeasible"):
		return StatusInfeasible, nil, nil
	case strings.Contains(header, "nbounded"):
		return 0, nil, fmt.Errorf("cbc reported an unbounded model")
	case strings.HasPrefix(header, "Stopped"):
		status = StatusFeasible
		if strings.Contains(header, "no integer solution") || cbcHeaderObjective(header) >= cbcNoSolutionObjective {
			return StatusNoIncumbent, nil, nil
		}
	default:
		return 0, nil, fmt.Errorf("unrecognized cbc status %q", header)
	}

	rows := lo.Map(lines[1:], func(line string, _ int) string {
		// cbc flags infeasible rows with a leading "**"
		fields := strings.Fields(strings.TrimPrefix(line, "**"))
		if len(fields) < 3 {
			return ""
		}
		return fields[1] + " " + fields[2]
	})
	values, err := parseValueLines(rows, model)
	if err != nil {
		return 0, nil, err
	}
	return status, values, nil
}

func cbcHeaderObjective(header string) float64 {
	_, after, found := strings.Cut(header, "objective value")
	if !found {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(after), 64)
	if err != nil {
		return 0
	}
	return value
}
