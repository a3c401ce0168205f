package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/eqsat/internal/compiler"
	"github.com/roach88/eqsat/internal/ir"
	"github.com/roach88/eqsat/internal/rewrite"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rules loaded from a directory.
type LoadResult struct {
	Rules     []*rewrite.Rewrite // Declaration order
	CUEValue  cue.Value          // The raw CUE value for additional processing
	FileCount int                // Number of CUE files found
}

// Descriptors returns the printable shape of every loaded rule.
func (r *LoadResult) Descriptors() []ir.RuleDescriptor {
	out := make([]ir.RuleDescriptor, len(r.Rules))
	for i, rule := range r.Rules {
		out[i] = rule.Descriptor()
	}
	return out
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

// parseLoadError returns the code and message of err, treating errors that
// are not LoadErrors as generic.
func parseLoadError(err error) (code, message string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules loads the CUE package in dir and compiles every field of its
// top-level "rule" struct, in declaration order.
//
// A nil result means the package itself could not be loaded. Otherwise
// the result holds every rule that compiled and errs holds one LoadError
// per rule that did not; LoadModeFailFast stops at the first of those.
func LoadRules(dir string, mode LoadMode) (*LoadResult, []error) {
	files, err := rulesPackageFiles(dir)
	if err != nil {
		return nil, []error{err}
	}

	value, err := buildRulesPackage(dir)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{
		Rules:     []*rewrite.Rewrite{},
		CUEValue:  value,
		FileCount: len(files),
	}
	errs := compileRuleFields(value, mode, result)

	if len(result.Rules) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoRules, Message: fmt.Sprintf("no rules found in %s", dir)})
	}
	return result, errs
}

// rulesPackageFiles checks that dir is a directory holding CUE files.
func rulesPackageFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
	case err != nil:
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
	case !info.IsDir():
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}
	return files, nil
}

// buildRulesPackage loads and evaluates the CUE package in dir.
func buildRulesPackage(dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// compileRuleFields appends the compiled rules of value to result and
// returns the failures.
func compileRuleFields(value cue.Value, mode LoadMode, result *LoadResult) []error {
	rules := value.LookupPath(cue.ParsePath("rule"))
	if !rules.Exists() {
		return nil
	}

	iter, err := rules.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating rules: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		rule, err := compiler.CompileRule(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, iter.Selector().String()))
			if mode == LoadModeFailFast {
				break
			}
			continue
		}
		result.Rules = append(result.Rules, rule)
	}
	return errs
}

// loadRulesFailFast loads rules and returns the first error, if any.
func loadRulesFailFast(dir string) (*LoadResult, error) {
	result, errs := LoadRules(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// convertCompileError turns a compiler error into a LoadError named after
// the failing rule. label is used when the error does not carry the rule.
func convertCompileError(err error, label string) *LoadError {
	var compileErr *compiler.CompileError
	if !errors.As(err, &compileErr) {
		return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("rule.%s: %v", label, err)}
	}
	if compileErr.Rule != "" {
		label = compileErr.Rule
	}
	return &LoadError{
		Code:    MapFieldToErrorCode(compileErr.Field),
		Message: fmt.Sprintf("rule.%s: %s", label, compileErr.Message),
		Pos:     compileErr.Pos,
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoRules     = "E008" // Package defines no rules
	ErrCodeBadTerm     = "E009" // Term argument does not parse

	// Rule compilation errors
	ErrCodeInvalidPattern   = "E101" // lhs does not parse
	ErrCodeInvalidApplier   = "E102" // rhs does not parse
	ErrCodeInvalidCondition = "E103" // condition missing a side or does not parse
	ErrCodeInvalidRule      = "E104" // parts parse but the rule does not build
	ErrCodeInvalidCUE       = "E105" // CUE value error inside a rule
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "lhs":
		return ErrCodeInvalidPattern
	case "rhs":
		return ErrCodeInvalidApplier
	case "conditions", "conditions.lhs", "conditions.rhs":
		return ErrCodeInvalidCondition
	case "rule":
		return ErrCodeInvalidRule
	case "cue":
		return ErrCodeInvalidCUE
	default:
		return ErrCodeGeneric
	}
}
