// Package shellbridge evaluates a recipe's shell source into a flat
// symbol table — scalars, arrays, and function bodies — without
// spawning a subshell. It walks the parsed syntax tree directly
// (mvdan.cc/sh/v3/syntax), which gives the same result as piping the
// recipe through `declare -p`/`declare -f` in a clean shell process,
// but with no subprocess, no network, and no filesystem side effects
// possible during evaluation.
package shellbridge

import (
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

// Symbols is the raw result of evaluating a recipe: every top-level
// scalar, array, and function the shell source declares, keyed by
// its literal (possibly `_<arch>` suffixed) name.
type Symbols struct {
	Variables map[string]string
	Arrays    map[string][]string
	Functions map[string]string
}

// Evaluate parses source (the full text of a recipe file) and
// returns its symbol table. name is used only for error context.
func Evaluate(name string, source []byte) (*Symbols, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))

	file, err := parser.Parse(strings.NewReader(string(source)), name)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindShellEvaluation, "failed to parse recipe shell source").
			WithContext("recipe", name).WithOperation("Evaluate")
	}

	syms := &Symbols{
		Variables: make(map[string]string),
		Arrays:    make(map[string][]string),
		Functions: make(map[string]string),
	}

	collectAssignments(file, syms)
	collectFunctions(file, syms)

	return syms, nil
}

// collectAssignments walks every top-level assignment, resolving
// scalar and array values the same way a shell would (word
// expansion over literal/quoted/param-expansion parts), stopping
// short of resolving runtime-only variables that only exist once the
// build script actually executes. Assignments inside function bodies
// are not collected.
func collectAssignments(file *syntax.File, syms *Symbols) {
	env := expand.FuncEnviron(func(name string) string { return syms.Variables[name] })

	syntax.Walk(file, func(node syntax.Node) bool {
		if _, isFunc := node.(*syntax.FuncDecl); isFunc {
			return false
		}

		assign, ok := node.(*syntax.Assign)
		if !ok {
			return true
		}

		if assign.Array != nil {
			syms.Arrays[assign.Name.Value] = stringifyArray(assign, env)
			return true
		}

		if assign.Value != nil {
			syms.Variables[assign.Name.Value] = stringifyWord(assign.Value, env)
		}

		return true
	})
}

// collectFunctions walks every function declaration and re-renders
// its body back to shell source text, for later execution by the
// executor capability.
func collectFunctions(file *syntax.File, syms *Symbols) {
	printer := syntax.NewPrinter(syntax.Indent(2))

	syntax.Walk(file, func(node syntax.Node) bool {
		fn, ok := node.(*syntax.FuncDecl)
		if !ok {
			return true
		}

		var sb strings.Builder
		_ = printer.Print(&sb, fn.Body)
		syms.Functions[fn.Name.Value] = sb.String()

		return true
	})
}

// stringifyArray renders an array assignment's elements using the
// shell expansion rules for literal/quoted words. An element that
// references a variable not yet declared is kept as its literal text
// (see stringifyWord); it is not resolved later.
func stringifyArray(assign *syntax.Assign, env expand.Environ) []string {
	elems := make([]string, 0, len(assign.Array.Elems))

	for _, elem := range assign.Array.Elems {
		elems = append(elems, stringifyWord(elem.Value, env))
	}

	return elems
}

// stringifyWord best-effort expands a word against env, the scalars
// declared so far, so literal and quoted content and references to
// earlier recipe variables resolve correctly; a word that references
// an unset variable is left as its literal "${...}" text rather than
// erroring, since many recipe variables are only bound inside the
// executor at build time.
func stringifyWord(word *syntax.Word, env expand.Environ) string {
	fields, err := expand.Fields(&expand.Config{Env: env, NoUnset: true}, word)
	if err != nil || len(fields) == 0 {
		return wordLiteral(word)
	}

	return strings.Join(fields, " ")
}

// wordLiteral falls back to re-printing the raw word when expansion
// fails (e.g. it references an as-yet-unbound variable).
func wordLiteral(word *syntax.Word) string {
	printer := syntax.NewPrinter()

	var sb strings.Builder

	_ = printer.Print(&sb, word)

	return sb.String()
}
