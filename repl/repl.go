// Package repl provides a persistent Go execution environment backed by the
// yaegi interpreter. Bindings introduced by executed code survive across
// calls until an explicit reset, which makes the environment suitable for
// incremental, REPL-style sessions driven by an agent.
//
// The environment is not a security boundary: interpreted code runs in the
// host process with full access to whatever the loaded stdlib symbols expose.
// Callers that need real isolation must wrap execution in a process or
// container sandbox.
package repl

import (
	"bytes"
	"fmt"
	"go/parser"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// seedImports are loaded into every fresh namespace so snippets can use the
// common packages without importing them first.
const seedImports = `import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)`

// NoOutput is returned by Execute when the code produced neither output nor
// an expression value.
const NoOutput = "Code executed successfully (no output)"

// NoUserVars is returned by Inspect when the namespace holds only the
// pre-seeded bindings.
const NoUserVars = "No user-defined variables in namespace."

// previewLimit caps the rendered value preview in Inspect output.
const previewLimit = 50

// Environment is a persistent Go interpreter namespace. One environment owns
// exactly one namespace; two environments share nothing and may run fully in
// parallel. Calls against a single environment serialize on an internal
// mutex, since interleaved mutation of one namespace is undefined.
type Environment struct {
	mu       sync.Mutex
	interp   *interp.Interpreter
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	baseline map[string]bool
}

// New creates an environment with a pristine namespace: stdlib symbols
// loaded and the seed imports applied.
func New() *Environment {
	e := &Environment{}
	e.init()
	return e
}

// init builds a fresh interpreter over the environment's capture buffers and
// records the baseline binding set. Used by New and Reset.
func (e *Environment) init() {
	e.stdout.Reset()
	e.stderr.Reset()
	i := interp.New(interp.Options{Stdout: &e.stdout, Stderr: &e.stderr})
	// stdlib.Symbols cannot fail to load; the error return guards custom
	// symbol maps.
	_ = i.Use(stdlib.Symbols)
	if _, err := i.Eval(seedImports); err != nil {
		// Seeding uses only stdlib packages; a failure here means the
		// interpreter itself is broken.
		panic(fmt.Sprintf("repl: seed imports failed: %v", err))
	}
	e.interp = i
	e.baseline = make(map[string]bool)
	for name := range i.Globals() {
		e.baseline[name] = true
	}
	e.stdout.Reset()
	e.stderr.Reset()
}

// Execute runs a code fragment against the persistent namespace and returns
// everything it produced as text: captured stdout, then (separated by a
// newline when both are present) captured stderr including any error. New or
// changed bindings persist for subsequent calls.
//
// A fragment that parses as a single expression is evaluated and its value
// rendered after the captured output. Anything else runs as a statement
// sequence whose result value is discarded. Execute never returns an error
// to the caller: failures of every kind, including interpreter panics, are
// folded into the returned text so the agent sees them as data.
func (e *Environment) Execute(code string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stdout.Reset()
	e.stderr.Reset()

	trimmed := strings.TrimSpace(code)
	if _, perr := parser.ParseExpr(trimmed); perr == nil {
		// Expression path: capture the value.
		v, err := e.eval(trimmed)
		if err != nil {
			fmt.Fprint(&e.stderr, err.Error())
			return e.combined()
		}
		out := e.stdout.String()
		if v.IsValid() && v.CanInterface() {
			out += fmt.Sprintf("%v", v.Interface())
		}
		if errOut := e.stderr.String(); errOut != "" {
			if out != "" {
				out += "\n"
			}
			out += errOut
		}
		if out == "" {
			return NoOutput
		}
		return out
	}

	// Statement path: side effects only.
	if _, err := e.eval(trimmed); err != nil {
		fmt.Fprint(&e.stderr, err.Error())
	}
	return e.combined()
}

// eval runs the interpreter with panic recovery: yaegi panics on some
// malformed inputs, and interpreted code can panic at runtime.
func (e *Environment) eval(src string) (v reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return e.interp.Eval(src)
}

// combined merges the capture buffers: stdout, then stderr, separated by a
// newline when both are non-empty. Empty output yields the NoOutput
// sentinel.
func (e *Environment) combined() string {
	out := e.stdout.String()
	if errOut := e.stderr.String(); errOut != "" {
		if out != "" {
			out += "\n"
		}
		out += errOut
	}
	if out == "" {
		return NoOutput
	}
	return out
}

// Reset discards the namespace and reinitializes it to the pristine
// pre-seeded state.
func (e *Environment) Reset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.init()
	return "Namespace has been reset."
}

// Inspect returns a listing of user-introduced bindings: every namespace
// entry absent from the pristine baseline, annotated with its type and, for
// non-callables, a value preview truncated beyond previewLimit runes.
func (e *Environment) Inspect() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	globals := e.interp.Globals()
	var names []string
	for name := range globals {
		if !e.baseline[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return NoUserVars
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Current namespace variables:\n")
	for _, name := range names {
		v := globals[name]
		if !v.IsValid() {
			fmt.Fprintf(&b, "  %s: <unknown>\n", name)
			continue
		}
		typeName := v.Type().String()
		if v.Kind() == reflect.Func {
			fmt.Fprintf(&b, "  %s: %s\n", name, typeName)
			continue
		}
		preview := "<unexported>"
		if v.CanInterface() {
			preview = fmt.Sprintf("%v", v.Interface())
		}
		if r := []rune(preview); len(r) > previewLimit {
			preview = string(r[:previewLimit]) + "..."
		}
		fmt.Fprintf(&b, "  %s: %s = %s\n", name, typeName, preview)
	}
	return strings.TrimRight(b.String(), "\n")
}
