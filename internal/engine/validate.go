package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/jsonschema"

	"corisa-backend/internal/modplan"
)

// Validator checks raw plan documents against the plan grammar. The grammar
// is compiled once; Validate is safe for concurrent use.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded plan grammar.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	expr, err := cuejson.Extract(modplan.SchemaFilename, modplan.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("parse plan grammar: %w", err)
	}
	raw := ctx.BuildExpr(expr)
	if err := raw.Err(); err != nil {
		return nil, fmt.Errorf("build plan grammar: %w", err)
	}
	file, err := jsonschema.Extract(raw, &jsonschema.Config{})
	if err != nil {
		return nil, fmt.Errorf("extract plan grammar: %w", err)
	}
	schema := ctx.BuildFile(file)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile plan grammar: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks a plan document and returns every violation as
// "<path> <message>". Operations with a known tag are checked against their own
// definition so the messages point at the offending field.
func (v *Validator) Validate(data []byte) ValidationResult {
	if !json.Valid(data) {
		return newValidationResult([]string{"(root) is not valid JSON"}, nil)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	expr, err := cuejson.Extract("plan.json", data)
	if err != nil {
		return newValidationResult([]string{"(root) " + err.Error()}, nil)
	}
	doc := v.ctx.BuildExpr(expr)

	err = v.schema.Unify(doc).Validate(cue.Concrete(true))
	if err == nil {
		return newValidationResult(nil, nil)
	}

	errs := v.operationErrors(doc)
	if len(errs) == 0 {
		errs = formatErrors("", err)
	}
	return newValidationResult(errs, nil)
}

// ValidatePlan encodes an in-memory plan and validates it.
func (v *Validator) ValidatePlan(p *modplan.Plan) ValidationResult {
	data, err := p.Encode()
	if err != nil {
		return newValidationResult([]string{"(root) " + err.Error()}, nil)
	}
	return v.Validate(data)
}

// operationErrors narrows a failure to the envelope fields and to individual
// operations. It returns nil when the document is not shaped enough to tell
// (e.g. operations is not a list), and the caller falls back to the
// document-level errors.
func (v *Validator) operationErrors(doc cue.Value) []string {
	var errs []string

	fields, err := doc.Fields()
	if err != nil {
		return nil
	}
	for fields.Next() {
		switch name := fields.Selector().String(); name {
		case "version", "operations":
		default:
			errs = append(errs, name+" field not allowed")
		}
	}
	version := v.schema.Unify(doc).LookupPath(cue.ParsePath("version"))
	if err := version.Validate(cue.Concrete(true)); err != nil {
		errs = append(errs, formatErrors("version", err)...)
	}

	ops := doc.LookupPath(cue.ParsePath("operations"))
	if !ops.Exists() {
		return append(errs, "operations field is required")
	}
	iter, err := ops.List()
	if err != nil {
		return nil
	}
	for i := 0; iter.Next(); i++ {
		prefix := "operations." + strconv.Itoa(i)
		op, err := v.standalone(iter.Value())
		if err != nil {
			return nil
		}

		tag, err := op.LookupPath(cue.ParsePath("op")).String()
		if err != nil {
			errs = append(errs, prefix+".op must be a string")
			continue
		}
		kind := modplan.Kind(tag)
		if !kind.Valid() {
			errs = append(errs, fmt.Sprintf("%s.op must be one of %s", prefix, kindList()))
			continue
		}
		def := v.schema.LookupPath(cue.ParsePath("#" + modplan.DefinitionFor(kind)))
		if !def.Exists() {
			return nil
		}
		if err := def.Unify(op).Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, formatErrors(prefix, err)...)
		}
	}
	return errs
}

// standalone rebuilds a sub-value as its own document so error paths are
// relative to it.
func (v *Validator) standalone(val cue.Value) (cue.Value, error) {
	data, err := val.MarshalJSON()
	if err != nil {
		return cue.Value{}, err
	}
	expr, err := cuejson.Extract("operation.json", data)
	if err != nil {
		return cue.Value{}, err
	}
	return v.ctx.BuildExpr(expr), nil
}

// formatErrors renders CUE errors as "<path> <message>", with paths made
// relative to prefix and definition names stripped.
func formatErrors(prefix string, err error) []string {
	var pre []string
	if prefix != "" {
		pre = strings.Split(prefix, ".")
	}
	var out []string
	seen := map[string]bool{}
	for _, e := range cueerrors.Errors(err) {
		elems := e.Path()
		for len(elems) > 0 && strings.HasPrefix(elems[0], "#") {
			elems = elems[1:]
		}
		if hasPathPrefix(elems, pre) {
			elems = elems[len(pre):]
		}
		path := strings.Join(append(append([]string{}, pre...), elems...), ".")
		if path == "" {
			path = "(root)"
		}
		format, args := e.Msg()
		line := path + " " + fmt.Sprintf(format, args...)
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	return out
}

func hasPathPrefix(elems, pre []string) bool {
	if len(pre) == 0 || len(elems) < len(pre) {
		return false
	}
	for i := range pre {
		if elems[i] != pre[i] {
			return false
		}
	}
	return true
}

func kindList() string {
	names := make([]string, len(modplan.Kinds))
	for i, k := range modplan.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
