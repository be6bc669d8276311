package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/limaJavier/ctspd/pkg/model"
	"github.com/samber/lo"
)

// Exit codes
const (
	exitOptimal    = 10
	exitFeasible   = 15
	exitInfeasible = 20
	exitNoTour     = 25
)

func main() {
	// Define arguments
	formulationPtr := flag.String("formulation", "MTZ1", fmt.Sprintf("Formulation to build. Allowed values are: %v, where \"MTZ1\" is the default", strings.Join(model.Aliases(), ", ")))
	solverPtr := flag.String("solver", "gurobi", fmt.Sprintf("Solver to use. Allowed values are: %v, where \"gurobi\" is the default", strings.Join(milp.SolverNames(), ", ")))
	filePathPtr := flag.String("file", "", "Path to the instance file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the result will be written; if empty, it'll be written into the Standard Output")
	timeLimitPtr := flag.Int("time", 0, "Time limit in seconds, where 0 (no limit) is the default")
	heuristicsPtr := flag.Float64("heuristics", -1, "Fraction of the effort spent on primal heuristics (between 0 and 1); negative keeps the solver default")
	memoryLimitPtr := flag.Float64("mem", 0, "Memory limit in gigabytes, where 0 (no limit) is the default")
	solverLogPtr := flag.Bool("log", false, "Echo the solver log")
	relaxPtr := flag.Bool("relax", false, "Solve the linear relaxation instead of the integer model")
	startPtr := flag.String("start", "", `Warm start. Either "nn" (nearest-neighbour tour) or a comma separated tour such as "0,2,1,3,0"; empty means no warm start`)
	configPtr := flag.String("config", "", "Path to the solver configuration file; if empty, config.json next to the executable is used when present")
	flag.Parse()
	defer log.Flush()

	filePath := *filePathPtr
	outFile := *outFilePathPtr

	// Validate arguments
	variant, err := model.ParseVariant(*formulationPtr)
	if err != nil {
		log.Exit(err)
	}
	solver, err := milp.NewSolver(strings.ToLower(*solverPtr))
	if err != nil {
		log.Exit(err)
	} else if filePath == "" {
		log.Exit("an input file must be specified")
	} else if *timeLimitPtr < 0 {
		log.Exitf("time limit must be non-negative: %v", *timeLimitPtr)
	} else if *heuristicsPtr > 1 {
		log.Exitf("heuristics must be at most 1: %v", *heuristicsPtr)
	} else if *memoryLimitPtr < 0 {
		log.Exitf("memory limit must be non-negative: %v", *memoryLimitPtr)
	}
	setConfigPath(*configPtr)

	// Extract input
	input, err := model.InputFromJson(filePath)
	if err != nil {
		log.Exitf("cannot parse input file: %v", err)
	}

	// Build formulation
	f, err := model.Build(input, variant, *relaxPtr)
	if err != nil {
		log.Exitf("an error occurred during model construction: %v", err)
	}
	driver := model.NewDriver(f, solver)

	if *startPtr != "" {
		tour, err := startTour(*startPtr, input)
		if err != nil {
			log.Exitf("invalid start tour: %v", err)
		}
		if err := driver.WarmStart(tour); err != nil {
			log.Exitf("cannot warm start: %v", err)
		}
	}

	// Solve
	params := milp.DefaultParameters()
	params.TimeLimit = time.Duration(*timeLimitPtr) * time.Second
	params.Heuristics = *heuristicsPtr
	params.MemoryLimit = *memoryLimitPtr
	if *solverLogPtr {
		params.LogVerbosity = 1
	}

	result, err := driver.Solve(context.Background(), params)
	if result == nil {
		log.Exitf("an error occurred while solving: %v", err)
	} else if err != nil {
		log.Errorf("the incumbent does not form a tour: %v", err)
	}

	// Marshal output into json
	resultJson, err := json.MarshalIndent(result.Export(input), "", "  ")
	if err != nil {
		log.Exitf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(resultJson))
	} else if err := os.WriteFile(outFile, resultJson, 0666); err != nil {
		log.Exitf("an error occurred while writing to the output file: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Variables: %v\n", result.Variables)
	fmt.Fprintf(os.Stderr, "Constraints: %v\n", result.Constraints)
	log.Flush()
	os.Exit(exitCode(result))
}

func exitCode(result *model.Result) int {
	switch result.State {
	case model.StateOptimal, model.StateRelaxed:
		return exitOptimal
	case model.StateInfeasible:
		return exitInfeasible
	}
	if result.Tour == nil {
		return exitNoTour
	}
	return exitFeasible
}

func startTour(start string, input model.ModelInput) ([]int, error) {
	if start == "nn" {
		return model.NearestNeighbourTour(input), nil
	}

	var parseErr error
	tour := lo.Map(strings.Split(start, ","), func(item string, _ int) int {
		node, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return node
	})
	return tour, parseErr
}

func setConfigPath(configPath string) {
	if configPath != "" {
		milp.ConfigPath = configPath
		return
	}

	execPath, err := os.Executable()
	if err != nil {
		log.Exitf("cannot determine executable path: %v", err)
	}
	candidate := path.Join(path.Dir(execPath), "config.json")
	if _, err := os.Stat(candidate); err != nil {
		log.V(1).Infof("no config.json next to the executable, solvers are looked up on PATH")
		return
	}
	milp.ConfigPath = candidate
}
