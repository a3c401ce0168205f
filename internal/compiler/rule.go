package compiler

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/eqsat/internal/rewrite"
)

// CompileRule parses a CUE value into a rewrite rule.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the rule struct itself; its label is the rule name:
//
//	rule: mul_to_shift: {
//		lhs: "(* ?a ?b)"
//		rhs: "(>> ?a (log2 ?b))"
//		conditions: [{lhs: "(is-power2 ?b)", rhs: "TRUE"}]
//		limit: 100
//	}
//
// lhs and rhs each accept a string or a list of strings. conditions and
// limit are optional.
func CompileRule(v cue.Value) (rule *rewrite.Rewrite, err error) {
	name := ruleName(v)
	defer func() {
		var ce *CompileError
		if errors.As(err, &ce) && ce.Rule == "" {
			ce.Rule = name
		}
	}()

	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := rewrite.NewBuilder(name)

	lhs, err := stringOrList(v, "lhs")
	if err != nil {
		return nil, err
	}
	for _, text := range lhs {
		if _, err := b.WithPatternString(text.text); err != nil {
			return nil, parseError("lhs", text, err)
		}
	}

	rhs, err := stringOrList(v, "rhs")
	if err != nil {
		return nil, err
	}
	for _, text := range rhs {
		if _, err := b.WithApplierString(text.text); err != nil {
			return nil, parseError("rhs", text, err)
		}
	}

	if err := compileConditions(v, b); err != nil {
		return nil, err
	}

	limitVal := v.LookupPath(cue.ParsePath("limit"))
	if limitVal.Exists() {
		limit, err := limitVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		b.WithApplicationLimit(int(limit))
	}

	rule, err = b.Build()
	if err != nil {
		return nil, &CompileError{
			Field:   "rule",
			Message: err.Error(),
			Pos:     v.Pos(),
			Err:     err,
		}
	}
	return rule, nil
}

// CompileRules compiles every field of the top-level "rule" struct, in
// declaration order. A value without rules yields an empty slice.
func CompileRules(v cue.Value) ([]*rewrite.Rewrite, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rules := []*rewrite.Rewrite{}
	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return rules, nil
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rule, err := CompileRule(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", iter.Selector(), err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// CompileFiles compiles each file on its own and concatenates the rules in
// the order given. Rule names must be unique across all files.
func CompileFiles(paths []string) ([]*rewrite.Rewrite, error) {
	ctx := cuecontext.New()
	seen := make(map[string]string)

	rules := []*rewrite.Rewrite{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule file: %w", err)
		}

		v := ctx.CompileBytes(data, cue.Filename(path))
		fileRules, err := CompileRules(v)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}

		for _, r := range fileRules {
			if prev, dup := seen[r.Name()]; dup {
				return nil, &CompileError{
					Field:   "rule",
					Message: fmt.Sprintf("duplicate rule %q (also defined in %s)", r.Name(), prev),
				}
			}
			seen[r.Name()] = path
		}
		rules = append(rules, fileRules...)
	}
	return rules, nil
}

// ruleName returns the unquoted label of v.
func ruleName(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	sel := sels[len(sels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// sourceText is a rule string with the position it came from.
type sourceText struct {
	text string
	val  cue.Value
}

// stringOrList reads a required field holding a string or a list of strings.
func stringOrList(v cue.Value, field string) ([]sourceText, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}

	if s, err := fv.String(); err == nil {
		return []sourceText{{text: s, val: fv}}, nil
	}

	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a string or a list of strings",
			Pos:     fv.Pos(),
		}
	}

	var out []sourceText
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, sourceText{text: s, val: iter.Value()})
	}
	if len(out) == 0 {
		return nil, &CompileError{
			Field:   field,
			Message: field + " must not be empty",
			Pos:     fv.Pos(),
		}
	}
	return out, nil
}

// compileConditions adds the optional conditions list to b.
func compileConditions(v cue.Value, b *rewrite.Builder) error {
	cv := v.LookupPath(cue.ParsePath("conditions"))
	if !cv.Exists() {
		return nil
	}

	iter, err := cv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		c := iter.Value()
		lhs, err := requiredString(c, "lhs")
		if err != nil {
			return err
		}
		rhs, err := requiredString(c, "rhs")
		if err != nil {
			return err
		}
		if _, err := b.WithConditionStrings(lhs.text, rhs.text); err != nil {
			return &CompileError{
				Field:   "conditions",
				Message: err.Error(),
				Pos:     c.Pos(),
				Err:     err,
			}
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (sourceText, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return sourceText{}, &CompileError{
			Field:   "conditions." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return sourceText{}, formatCUEError(err)
	}
	return sourceText{text: s, val: fv}, nil
}

func parseError(field string, src sourceText, err error) error {
	return &CompileError{
		Field:   field,
		Message: err.Error(),
		Pos:     src.val.Pos(),
		Err:     err,
	}
}
