package milp

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var gurobiGap = regexp.MustCompile(`gap (-|[0-9.eE+-]+)%?`)

type gurobiSolver struct{}

func NewGurobiSolver() Solver {
	return &gurobiSolver{}
}

func (solver *gurobiSolver) Solve(ctx context.Context, model *Model, params Parameters) (*Solution, error) {
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
		return nil, fmt.Errorf("cannot write gurobi model: %w", err)
	}
	solutionPath := ws.path("solution.sol")

	startPath := ""
	if model.HasHints() {
		startPath, err = ws.writeHints("start.mst", model, []string{"# MIP start"}, func(_ int, name string, value float64) string {
			return fmt.Sprintf("%v %v", name, formatNumber(value))
		})
		if err != nil {
			return nil, fmt.Errorf("cannot write gurobi start: %w", err)
		}
	}
	args := gurobiArguments(params, modelPath, solutionPath, startPath)

	execution, err := run(ctx, "gurobi", getExecutablePath("gurobiPath", "gurobi_cl"), args...)
	if err != nil {
		return nil, err
	}
	echoLog("gurobi", params, execution.stdout)
	if execution.exitCode != 0 {
		return nil, fmt.Errorf("an error occurred during gurobi execution: exit code %v : %v", execution.exitCode, execution.stderr)
	}

	status, err := gurobiStatus(execution.stdout)
	if err != nil {
		return nil, err
	}

	var values []float64
	if content, err := os.ReadFile(solutionPath); err == nil {
		values, err = parseGurobiSolution(string(content), model)
		if err != nil {
			return nil, err
		}
	}
	if values == nil && status == StatusFeasible {
		status = StatusNoIncumbent
	}

	return newSolution(status, model, values, execution.runtime, parseGurobiGap(execution.stdout)), nil
}

// gurobiArguments lists the gurobi_cl parameters followed by the model file.
// An empty startPath means no MIP start.
func gurobiArguments(params Parameters, modelPath, solutionPath, startPath string) []string {
	args := []string{"ResultFile=" + solutionPath, "LogToConsole=1"}
	if params.TimeLimit > 0 {
		args = append(args, fmt.Sprintf("TimeLimit=%v", params.TimeLimit.Seconds()))
	}
	if params.MemoryLimit > 0 {
		args = append(args, fmt.Sprintf("MemLimit=%v", params.MemoryLimit))
	}
	if params.Heuristics >= 0 {
		args = append(args, fmt.Sprintf("Heuristics=%v", params.Heuristics))
	}
	if startPath != "" {
		args = append(args, "InputFile="+startPath)
	}
	return append(args, modelPath)
}

func gurobiStatus(output string) (Status, error) {
	switch {
	case strings.Contains(output, "Optimal solution found"), strings.Contains(output, "Optimal objective"):
		return StatusOptimal, nil
	case strings.Contains(output, "Model is infeasible"), strings.Contains(output, "Infeasible model"):
		return StatusInfeasible, nil
	case strings.Contains(output, "Time limit reached"),
		strings.Contains(output, "Solution limit reached"),
		strings.Contains(output, "Interrupt request received"):
		return StatusFeasible, nil
	case strings.Contains(output, "Model is unbounded"), strings.Contains(output, "Unbounded model"):
		return 0, fmt.Errorf("gurobi reported an unbounded model")
	}
	return 0, fmt.Errorf("unrecognized gurobi outcome")
}

// parseGurobiSolution returns nil when the file carries no assignment.
func parseGurobiSolution(content string, model *Model) ([]float64, error) {
	lines := lo.Filter(nonEmptyLines(content), func(line string, _ int) bool {
		return !strings.HasPrefix(line, "#")
	})
	if len(lines) == 0 {
		return nil, nil
	}
	return parseValueLines(lines, model)
}

func parseGurobiGap(output string) *float64 {
	matches := gurobiGap.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	gap, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return nil
	}
	return lo.ToPtr(gap / 100)
}
