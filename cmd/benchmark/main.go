package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/golang/glog"
	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/limaJavier/ctspd/pkg/model"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	csvFileName    = "benchmark_results.csv"
	datetimeLayout = "20060102_150405"
)

// Config is the run configuration read from benchmark.yaml.
type Config struct {
	Solvers            []string `mapstructure:"solvers" validate:"required,min=1,dive,oneof=MTZ1 MTZ2 GP1 GP2 SSB1 SSB2 SST1 SST2 H2020"`
	Backend            string   `mapstructure:"backend" validate:"required,oneof=gurobi cbc highs simplex"`
	InstancesDir       string   `mapstructure:"instancesDir" validate:"required"`
	Instances          []string `mapstructure:"instances"`
	InstancePattern    string   `mapstructure:"instancePattern"`
	ResultsDir         string   `mapstructure:"resultsDir" validate:"required"`
	SolvedDir          string   `mapstructure:"solvedDir" validate:"required_if=UseSolvedList true"`
	TimeLimit          int      `mapstructure:"timeLimit" validate:"min=0"`
	Heuristics         float64  `mapstructure:"heuristics" validate:"lte=1"`
	MemoryLimit        float64  `mapstructure:"memLimit" validate:"min=0"`
	WarmStart          bool     `mapstructure:"warmStart"`
	Relax              bool     `mapstructure:"relax"`
	PrintLog           bool     `mapstructure:"printLog"`
	Export             bool     `mapstructure:"export"`
	DatetimeOnFilename bool     `mapstructure:"datetimeOnFilename"`
	UseSolvedList      bool     `mapstructure:"useSolvedList"`
}

type BenchmarkResult struct {
	Formulation string
	Backend     string
	Instance    string
	Nodes       int
	Clusters    int
	D           int
	Status      string
	Objective   *float64
	TourCost    *float64
	Gap         *float64
	Runtime     time.Duration
	Variables   int
	Constraints int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func main() {
	configPathPtr := flag.String("config", "benchmark.yaml", "Path to the run configuration")
	solverConfigPtr := flag.String("solvers", "", "Path to the solver configuration file; if empty, the default location is used")
	flag.Parse()
	defer log.Flush()

	if *solverConfigPtr != "" {
		milp.ConfigPath = *solverConfigPtr
	}

	config, err := loadConfig(*configPathPtr)
	if err != nil {
		log.Exitf("cannot load run configuration: %v", err)
	}
	solver, err := milp.NewSolver(config.Backend)
	if err != nil {
		log.Exit(err)
	}

	results, err := run(context.Background(), config, solver)
	if err != nil {
		log.Exit(err)
	}
	toCsv(filepath.Join(config.ResultsDir, csvFileName), results)
}

func loadConfig(path string) (Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var configYaml map[string]any
	if err := yaml.Unmarshal(bytes, &configYaml); err != nil {
		return Config{}, fmt.Errorf("cannot parse %v: %w", path, err)
	}

	config := Config{Heuristics: -1}
	if err := mapstructure.Decode(configYaml, &config); err != nil {
		return Config{}, fmt.Errorf("cannot decode %v: %w", path, err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, err
	}
	if len(config.Instances) > 0 && config.InstancePattern != "" {
		return Config{}, errors.New("instances and instancePattern are mutually exclusive")
	}
	return config, nil
}

// run solves every pending (formulation, instance) pair in order.
func run(ctx context.Context, config Config, solver milp.Solver) ([]BenchmarkResult, error) {
	instances, err := selectInstances(config)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.ResultsDir, 0755); err != nil {
		return nil, err
	}
	if config.UseSolvedList {
		if err := os.MkdirAll(config.SolvedDir, 0755); err != nil {
			return nil, err
		}
	}

	params := milp.DefaultParameters()
	params.TimeLimit = time.Duration(config.TimeLimit) * time.Second
	params.Heuristics = config.Heuristics
	params.MemoryLimit = config.MemoryLimit
	if config.PrintLog {
		params.LogVerbosity = 1
	}

	results := make([]BenchmarkResult, 0, len(config.Solvers)*len(instances))
	for _, alias := range config.Solvers {
		variant := lo.Must(model.ParseVariant(alias))
		solvedPath := filepath.Join(config.SolvedDir, alias+".txt")

		solved := []string{}
		if config.UseSolvedList {
			if solved, err = readSolvedList(solvedPath); err != nil {
				return nil, err
			}
		}

		for _, instance := range instances {
			name := instanceName(instance)
			if slices.Contains(solved, name) {
				log.V(1).Infof("skipping %v with %v, already solved", name, alias)
				continue
			}
			log.Infof("Benchmarking instance %q with formulation %q and backend %q", name, alias, config.Backend)

			input, err := model.InputFromJson(filepath.Join(config.InstancesDir, instance))
			if err != nil {
				return nil, fmt.Errorf("cannot parse instance %v: %w", instance, err)
			}
			input.Name = name

			result, err := solveInstance(ctx, input, variant, config, solver, params)
			if result == nil {
				return nil, fmt.Errorf("%v on %v: %w", alias, name, err)
			} else if err != nil {
				log.Errorf("%v on %v: %v", alias, name, err)
			}

			if config.Export {
				file := filepath.Join(config.ResultsDir, resultFileName(alias, name, config.DatetimeOnFilename, time.Now()))
				if err := exportResult(file, result.Export(input)); err != nil {
					return nil, err
				}
			}
			if config.UseSolvedList {
				if err := appendSolved(solvedPath, name); err != nil {
					return nil, err
				}
			}

			results = append(results, BenchmarkResult{
				Formulation: alias,
				Backend:     config.Backend,
				Instance:    name,
				Nodes:       input.Nodes(),
				Clusters:    input.TotalClusters(),
				D:           input.D,
				Status:      result.Status,
				Objective:   result.Objective,
				TourCost:    result.TourCost,
				Gap:         result.Gap,
				Runtime:     result.Runtime,
				Variables:   result.Variables,
				Constraints: result.Constraints,
			})
		}
	}
	return results, nil
}

func solveInstance(ctx context.Context, input model.ModelInput, variant model.Variant, config Config, solver milp.Solver, params milp.Parameters) (*model.Result, error) {
	f, err := model.Build(input, variant, config.Relax)
	if err != nil {
		return nil, err
	}
	driver := model.NewDriver(f, solver)
	if config.WarmStart && !config.Relax {
		if err := driver.WarmStart(model.NearestNeighbourTour(input)); err != nil {
			return nil, err
		}
	}
	return driver.Solve(ctx, params)
}

// selectInstances lists the instance files of the run, sorted by name.
func selectInstances(config Config) ([]string, error) {
	if len(config.Instances) > 0 {
		return lo.Map(config.Instances, func(instance string, _ int) string {
			if filepath.Ext(instance) == "" {
				return instance + ".json"
			}
			return instance
		}), nil
	}

	files, err := os.ReadDir(config.InstancesDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	var pattern *regexp.Regexp
	if config.InstancePattern != "" {
		if pattern, err = regexp.Compile(config.InstancePattern); err != nil {
			return nil, fmt.Errorf("invalid instance pattern: %w", err)
		}
	}

	instances := lo.FilterMap(files, func(file os.DirEntry, _ int) (string, bool) {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			return "", false
		}
		return file.Name(), pattern == nil || pattern.MatchString(instanceName(file.Name()))
	})
	slices.Sort(instances)
	return instances, nil
}

func instanceName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func resultFileName(alias, instance string, withDatetime bool, now time.Time) string {
	if withDatetime {
		return fmt.Sprintf("%v_%v_%v.json", alias, instance, now.Format(datetimeLayout))
	}
	return fmt.Sprintf("%v_%v.json", alias, instance)
}

func exportResult(file string, record model.Record) error {
	bytes, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("an error occurred while building output json: %w", err)
	}
	return os.WriteFile(file, bytes, 0666)
}

func readSolvedList(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	} else if err != nil {
		return nil, err
	}
	defer file.Close()

	solved := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			solved = append(solved, line)
		}
	}
	return solved, scanner.Err()
}

func appendSolved(path, instance string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = fmt.Fprintln(file, instance)
	return err
}

func toCsv(path string, results []BenchmarkResult) {
	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Formulation", "Backend", "Instance", "Nodes", "Clusters", "D", "Status", "Objective", "TourCost", "Gap", "Runtime(s)", "Variables", "Constraints"}
	if err := writer.Write(header); err != nil {
		log.Fatalf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		if err := writer.Write(csvRecord(result)); err != nil {
			log.Fatalf("cannot write CSV record: %v", err)
		}
	}
}

func csvRecord(result BenchmarkResult) []string {
	optional := func(value *float64) string {
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%g", *value)
	}

	return []string{
		result.Formulation,
		result.Backend,
		result.Instance,
		fmt.Sprintf("%d", result.Nodes),
		fmt.Sprintf("%d", result.Clusters),
		fmt.Sprintf("%d", result.D),
		result.Status,
		optional(result.Objective),
		optional(result.TourCost),
		optional(result.Gap),
		fmt.Sprintf("%.3f", result.Runtime.Seconds()),
		fmt.Sprintf("%d", result.Variables),
		fmt.Sprintf("%d", result.Constraints),
	}
}
