package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"corisa-backend/internal/metadata"
	"corisa-backend/internal/modplan"
)

// guardOutcome is the verdict of an operation's guards.
type guardOutcome struct {
	skip   bool
	reason string
}

// checkGuards evaluates ifExists / ifMissing against the operation's target and
// then every assert expression. A guard that is not met skips the operation; a
// false or broken assertion fails it.
func checkGuards(s *metadata.Schema, op *modplan.Operation) (guardOutcome, error) {
	g := op.Guards
	if g == nil {
		return guardOutcome{}, nil
	}
	coll, id := op.Target()
	exists := false
	if a, err := accessorFor(coll); err == nil {
		exists = a.has(s, id)
	}

	if g.IfExists && !exists {
		return guardOutcome{skip: true, reason: fmt.Sprintf("skipped, ifExists guard not met: %s %s does not exist", coll, id)}, nil
	}
	if g.IfMissing && exists {
		return guardOutcome{skip: true, reason: fmt.Sprintf("skipped, ifMissing guard not met: %s %s already exists", coll, id)}, nil
	}
	if len(g.Assert) == 0 {
		return guardOutcome{}, nil
	}

	env, err := guardEnv(s, op, coll, id, exists)
	if err != nil {
		return guardOutcome{}, err
	}
	for _, src := range g.Assert {
		prog, err := CompileAssertion(src)
		if err != nil {
			return guardOutcome{}, fmt.Errorf("assert %q: %w", src, err)
		}
		ok, err := evaluateAssertion(prog, env)
		if err != nil {
			return guardOutcome{}, fmt.Errorf("assert %q: %w", src, err)
		}
		if !ok {
			return guardOutcome{}, fmt.Errorf("Assertion failed: %s", src)
		}
	}
	return guardOutcome{}, nil
}

// CompileAssertion compiles a guard assertion into an expr-lang program that
// must yield a boolean.
func CompileAssertion(src string) (*vm.Program, error) {
	prog, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile assertion: %w", err)
	}
	return prog, nil
}

func evaluateAssertion(prog *vm.Program, env map[string]any) (bool, error) {
	result, err := expr.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate assertion: %w", err)
	}
	ok, _ := result.(bool)
	return ok, nil
}

// guardEnv builds the variables an assertion can read:
//
//	op, collection, id  the operation tag and its target
//	exists              whether the target record exists
//	target              the target record as an object, or nil
//	item, changes       the operation payload
//	ids                 record ids per collection
//	counts              record count per collection
func guardEnv(s *metadata.Schema, op *modplan.Operation, coll modplan.Collection, id string, exists bool) (map[string]any, error) {
	var target map[string]any
	if exists {
		a, _ := accessorFor(coll)
		obj, err := a.object(s, id)
		if err != nil {
			return nil, err
		}
		target = obj
	}
	ids := make(map[string][]string, len(accessors))
	for c, a := range accessors {
		ids[string(c)] = a.ids(s)
	}
	return map[string]any{
		"op":         string(op.Op),
		"collection": string(coll),
		"id":         id,
		"exists":     exists,
		"target":     target,
		"item":       op.Item,
		"changes":    op.Changes,
		"ids":        ids,
		"counts":     counts(s),
	}, nil
}
