package api

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
	schemaErr  error
)

// requestSchema compiles the embedded schema once and returns the
// #Request definition.
func requestSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile request schema: %w", err)
			return
		}
		schemaVal = v.LookupPath(cue.ParsePath("#Request"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Request: %w", err)
		}
	})
	return schemaVal, schemaErr
}

// validateRequest unifies the raw JSON request with the #Request
// schema. Returns a human-readable description of the first violation,
// or "" when the request conforms.
//
// The caller decides the error taxonomy: the action enum is checked
// before this runs, so a violation here is a shape problem.
func validateRequest(raw []byte) (string, error) {
	schema, err := requestSchema()
	if err != nil {
		return "", err
	}

	expr, err := cuejson.Extract("request.json", raw)
	if err != nil {
		return fmt.Sprintf("malformed request JSON: %v", err), nil
	}

	data := schemaCtx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return fmt.Sprintf("malformed request JSON: %v", err), nil
	}

	unified := schema.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueerrors.Details(err, nil), nil
	}

	return "", nil
}
