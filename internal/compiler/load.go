package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/simkernel/internal/ir"
)

// Load stages reported by LoadError.
const (
	StageStat  = "stat"
	StageScan  = "scan"
	StageFiles = "files"
	StageLoad  = "load"
	StageBuild = "build"
)

// LoadError reports which stage of loading a model directory failed.
type LoadError struct {
	Stage string
	Dir   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loaded is a compiled model directory.
type Loaded struct {
	Spec      *ir.ModelSpec
	Value     cue.Value
	FileCount int
}

// LoadDir loads the CUE package in dir and compiles it into a ModelSpec.
// Compilation failures are returned as *CompileError; failures before
// compilation as *LoadError.
func LoadDir(dir string) (*Loaded, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Stage: StageStat, Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Stage: StageStat, Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Stage: StageScan, Dir: dir, Err: err}
	}
	if len(files) == 0 {
		return nil, &LoadError{Stage: StageFiles, Dir: dir, Err: fmt.Errorf("no CUE files found")}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Stage: StageLoad, Dir: dir, Err: fmt.Errorf("no CUE instances loaded")}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Stage: StageLoad, Dir: dir, Err: inst.Err}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, &LoadError{Stage: StageBuild, Dir: dir, Err: formatCUEError(err)}
	}

	spec, err := CompileModel(value)
	if err != nil {
		return nil, err
	}
	return &Loaded{Spec: spec, Value: value, FileCount: len(files)}, nil
}

// FindCUEFiles returns the .cue files directly inside dir, sorted by name.
// Subdirectories are separate CUE packages and are not included.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}
