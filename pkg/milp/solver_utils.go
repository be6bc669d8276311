package milp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

var ConfigPath = "../../config.json"

var ErrInvalidModel = errors.New("milp: invalid model")

// getExecutablePath reads key from the JSON config, falling back to the
// executable name when the file or the key is absent.
func getExecutablePath(key, fallback string) string {
	bytes, err := os.ReadFile(ConfigPath)
	if err != nil {
		log.V(1).Infof("config %v not readable, using %v: %v", ConfigPath, fallback, err)
		return fallback
	}

	var configJson map[string]any
	if err := json.Unmarshal(bytes, &configJson); err != nil {
		log.Warningf("cannot parse %v, using %v: %v", ConfigPath, fallback, err)
		return fallback
	}

	var config map[string]string
	if err := mapstructure.Decode(configJson, &config); err != nil {
		log.Warningf("cannot decode %v, using %v: %v", ConfigPath, fallback, err)
		return fallback
	}

	path, ok := config[key]
	if !ok || path == "" {
		return fallback
	}
	return path
}

// workspace is a temporary directory holding the files exchanged with an
// external solver.
type workspace struct {
	dir string
}

func newWorkspace() (*workspace, error) {
	dir, err := os.MkdirTemp("", "ctspd-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create solver workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (ws *workspace) path(name string) string {
	return filepath.Join(ws.dir, name)
}

func (ws *workspace) close() {
	if err := os.RemoveAll(ws.dir); err != nil {
		log.Warningf("cannot remove solver workspace %v: %v", ws.dir, err)
	}
}

func (ws *workspace) writeModel(model *Model) (string, error) {
	path := ws.path("model.lp")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := model.WriteLP(file); err != nil {
		return "", err
	}
	return path, nil
}

// writeHints writes one "name value" line per hint, preceded by header lines.
func (ws *workspace) writeHints(name string, model *Model, header []string, format func(index int, name string, value float64) string) (string, error) {
	var builder strings.Builder
	for _, line := range header {
		builder.WriteString(line + "\n")
	}
	for _, hint := range model.Hints() {
		builder.WriteString(format(int(hint.Var), model.VarName(hint.Var), hint.Coef) + "\n")
	}

	path := ws.path(name)
	return path, os.WriteFile(path, []byte(builder.String()), 0o644)
}

type execution struct {
	stdout, stderr string
	exitCode       int
	runtime        time.Duration
}

// run executes the solver binary. A non-zero exit code is not an error on its
// own; callers decide from the exit code and the produced files.
func run(ctx context.Context, solverName, path string, args ...string) (execution, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := execution{
		stdout:  stdOut.String(),
		stderr:  stderr.String(),
		runtime: time.Since(start),
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, fmt.Errorf("an error occurred during %v execution: %w : %v", solverName, err, result.stderr)
	}
	if cmd.ProcessState != nil {
		result.exitCode = cmd.ProcessState.ExitCode()
	}
	return result, nil
}

func echoLog(solverName string, params Parameters, output string) {
	if params.LogVerbosity > 0 {
		log.Infof("%v output:\n%v", solverName, output)
	}
}

// parseValueLines reads "name value" pairs into a dense assignment. Names that
// the model does not know are ignored, absent variables keep zero.
func parseValueLines(lines []string, model *Model) ([]float64, error) {
	values := make([]float64, model.NumVars())
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, ok := model.Lookup(fields[0])
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %v in solver output: %w", fields[0], err)
		}
		values[v] = value
	}
	return values, nil
}

func nonEmptyLines(content string) []string {
	return lo.Filter(
		lo.Map(strings.Split(content, "\n"), func(line string, _ int) string {
			return strings.TrimSpace(line)
		}),
		func(line string, _ int) bool {
			return line != ""
		},
	)
}

func newSolution(status Status, model *Model, values []float64, runtime time.Duration, gap *float64) *Solution {
	solution := &Solution{Status: status, Runtime: runtime, Gap: gap}
	if values != nil && (status == StatusOptimal || status == StatusFeasible) {
		solution.Values = values
		solution.Objective = lo.ToPtr(model.ObjectiveValue(values))
	}
	if status == StatusOptimal && gap == nil {
		solution.Gap = lo.ToPtr(0.0)
	}
	return solution
}

func checkModel(model *Model) error {
	if model.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInvalidModel, model.Err())
	}
	return nil
}
