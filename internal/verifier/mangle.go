package verifier

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// derivedFactLimit caps fixpoint evaluation so a pathological rule set
// cannot stall the tick loop.
const derivedFactLimit = 100000

// windowDecls declares the trace predicates the kernel extensionally
// asserts for every window. Rules may build on these freely.
const windowDecls = `
Decl window_epoch(E).
Decl holder(H).
Decl steps_spent(S).
Decl actions_admitted(N).
Decl actions_rejected(N).
Decl action(Kind, Steps).
`

// RuleVerifier evaluates a Mangle (Datalog) program over the window's
// trace facts and checks whether the goal predicate is derived. The
// goal has arity 1 by convention and is derived with a witness,
// usually the epoch:
//
//	frugal(E) :- window_epoch(E), steps_spent(S), :lt(S, 50).
//
// Deriving any goal fact is PASS, completing evaluation without one
// is FAIL, and any parse/analysis/evaluation problem is INCONCLUSIVE,
// which the kernel resolves to window failure - there is no vacuous
// pass.
type RuleVerifier struct {
	rules string
	goal  string

	once        sync.Once
	programInfo *analysis.ProgramInfo
	buildErr    error
}

// NewRuleVerifier creates a verifier from a rule program and the goal
// predicate name. The program is parsed and analyzed once, on first
// evaluation.
func NewRuleVerifier(rules, goal string) *RuleVerifier {
	return &RuleVerifier{rules: rules, goal: goal}
}

func (v *RuleVerifier) build() {
	var sb strings.Builder
	sb.WriteString(windowDecls)
	fmt.Fprintf(&sb, "Decl %s(W).\n", v.goal)
	sb.WriteString(v.rules)
	sb.WriteString("\n")

	parsed, err := parse.Unit(strings.NewReader(sb.String()))
	if err != nil {
		v.buildErr = fmt.Errorf("failed to parse rules: %w", err)
		return
	}

	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		v.buildErr = fmt.Errorf("failed to analyze rules: %w", err)
		return
	}
	v.programInfo = programInfo
}

// Evaluate implements Verifier.
func (v *RuleVerifier) Evaluate(w Window) Outcome {
	v.once.Do(v.build)
	if v.buildErr != nil {
		return Inconclusive
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, f := range w.Facts {
		atom, err := factToAtom(f)
		if err != nil {
			return Inconclusive
		}
		store.Add(atom)
	}

	if err := engine.EvalProgram(v.programInfo, store,
		engine.WithCreatedFactLimit(derivedFactLimit)); err != nil {
		return Inconclusive
	}

	derived := false
	for _, pred := range store.ListPredicates() {
		if pred.Symbol != v.goal {
			continue
		}
		store.GetFacts(ast.NewQuery(pred), func(ast.Atom) error {
			derived = true
			return nil
		})
	}

	if derived {
		return Pass
	}
	return Fail
}

// factToAtom converts a trace fact to a Mangle atom. Only strings and
// integers occur in windows.
func factToAtom(f Fact) (ast.Atom, error) {
	terms := make([]ast.BaseTerm, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case string:
			terms = append(terms, ast.String(v))
		case int:
			terms = append(terms, ast.Number(int64(v)))
		case int64:
			terms = append(terms, ast.Number(v))
		case uint64:
			terms = append(terms, ast.Number(int64(v)))
		default:
			return ast.Atom{}, fmt.Errorf("unsupported fact argument %T in %s", arg, f.Predicate)
		}
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}
