package status

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/PenteractAI/python-practice-platform/internal/queue"
	"github.com/PenteractAI/python-practice-platform/internal/services/grading"
)

// ValidateFilter reports whether a tail filter expression compiles. The
// HTTP layer calls this before committing to an event-stream response.
func ValidateFilter(expr string) error {
	_, err := newCELFilter(expr)
	return err
}

// celFilter wraps a compiled CEL program evaluated against result-stream
// entries. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

// newCELFilter compiles an optional CEL expression for the result tail.
// An empty expression matches everything. Available variables:
// submission_id, seq, text, json, now_ms.
func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("submission_id", cel.IntType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("text", cel.StringType),
		// Parsed result payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a result entry. When
// disabled, returns true.
func (f celFilter) Eval(it queue.Item) bool {
	if !f.enabled {
		return true
	}
	var submissionID int64
	if res, err := grading.DecodeResult(it.Payload); err == nil {
		submissionID = res.SubmissionID
	}
	var jsonObj any
	_ = json.Unmarshal(it.Payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"submission_id": submissionID,
		"seq":           int64(it.Seq),
		"text":          string(it.Payload),
		"json":          jsonObj,
		"now_ms":        time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
