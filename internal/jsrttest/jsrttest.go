// Package jsrttest provides a deterministic stand-in for jsrt.Executor
// so internal/cjsloader and internal/apiexec can be exercised without a
// real JS engine. It understands a tiny fixed vocabulary of module
// bodies rather than arbitrary JavaScript.
package jsrttest

import (
	"fmt"
	"strings"

	"github.com/almostnode/core/internal/jsrt"
)

// ScriptedExecutor maps exact source strings to either a canned export
// value (Exact, returned as-is) or a canned error (Err). Unregistered
// source falls through to a couple of recognized conventions (see Run).
type ScriptedExecutor struct {
	Exact map[string]any
	Err   map[string]error
}

func NewScriptedExecutor() *ScriptedExecutor {
	return &ScriptedExecutor{Exact: map[string]any{}, Err: map[string]error{}}
}

func (s *ScriptedExecutor) Run(code string, globals jsrt.Globals) (any, error) {
	if err, ok := s.Err[code]; ok {
		return nil, err
	}
	if v, ok := s.Exact[code]; ok {
		return v, nil
	}

	switch {
	case strings.Contains(code, "__REQUIRE__:"):
		// Convention used by tests: a line "__REQUIRE__:<id>" triggers a
		// require() call and returns its exports, letting tests assert on
		// transitive resolution without a real interpreter.
		for _, line := range strings.Split(code, "\n") {
			if id, ok := strings.CutPrefix(line, "__REQUIRE__:"); ok {
				return globals.Require(strings.TrimSpace(id))
			}
		}
	case strings.Contains(code, "__THROW__"):
		return nil, fmt.Errorf("scripted failure")
	case strings.TrimSpace(code) == "":
		return map[string]any{}, nil
	}

	return map[string]any{"__rawSource": code, "__filename": globals.Filename}, nil
}

var _ jsrt.Executor = (*ScriptedExecutor)(nil)
