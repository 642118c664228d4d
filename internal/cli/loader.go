package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/simkernel/internal/compiler"
	"github.com/roach88/simkernel/internal/ir"
)

// Error code constants - unified across all CLI commands.
// Model validation codes (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error, including CUE compile errors
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadError represents an error that occurred while loading a model directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult is a model directory compiled to a spec.
type LoadResult struct {
	Spec      *ir.ModelSpec
	FileCount int
}

// LoadModel loads and compiles the CUE model in dir. Every failure is a
// *LoadError carrying a CLI error code.
func LoadModel(dir string) (*LoadResult, error) {
	loaded, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertLoadError(dir, err)
	}
	return &LoadResult{Spec: loaded.Spec, FileCount: loaded.FileCount}, nil
}

// convertLoadError maps compiler load and compile errors to coded LoadErrors.
func convertLoadError(dir string, err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}

	var stageErr *compiler.LoadError
	if !errors.As(err, &stageErr) {
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	switch stageErr.Stage {
	case compiler.StageStat:
		if os.IsNotExist(stageErr.Err) {
			return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model directory not found: %s", dir)}
		}
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model directory %s: %v", dir, stageErr.Err)}
	case compiler.StageScan:
		return &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", stageErr.Err)}
	case compiler.StageFiles:
		return &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	case compiler.StageLoad:
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", stageErr.Err)}
	case compiler.StageBuild:
		loadErr := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", stageErr.Err)}
		if errors.As(stageErr.Err, &compileErr) {
			loadErr.Message = fmt.Sprintf("building CUE value: %s", compileErr.Message)
			loadErr.Pos = compileErr.Pos
		}
		return loadErr
	default:
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
}
