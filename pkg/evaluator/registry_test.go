package evaluator_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
)

func decl(name string, params ...string) *ast.FuncDecl {
	return &ast.FuncDecl{Name: name, Params: params}
}

func TestRegistryDecoratedKeys(t *testing.T) {
	reg := evaluator.NewRegistry(nil)
	first, second, third := decl("f"), decl("f", "a"), decl("f", "a", "b")
	reg.RegisterAll([]*ast.FuncDecl{first, decl("main"), second, third})

	if diff := cmp.Diff([]string{"f", "main", "f2", "f3"}, reg.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	for key, want := range map[string]*ast.FuncDecl{"f": first, "f2": second, "f3": third} {
		got, err := reg.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", key, err)
		}
		if got != want {
			t.Errorf("Lookup(%s) returned the wrong definition", key)
		}
	}
}

func TestRegistryDecoratedKeySkipsTakenNames(t *testing.T) {
	reg := evaluator.NewRegistry(nil)
	if key := reg.Register(decl("f2")); key != "f2" {
		t.Fatalf("got key %s", key)
	}
	reg.Register(decl("f"))
	if key := reg.Register(decl("f", "x")); key != "f3" {
		t.Errorf("got key %s, want f3", key)
	}
}

func TestRegistryLookupMissing(t *testing.T) {
	reg := evaluator.NewRegistry(nil)
	_, err := reg.Lookup("nope")
	expectCode(t, err, diagnostics.EName)
}

func TestRegistryResolveByArity(t *testing.T) {
	reg := evaluator.NewRegistry(nil)
	zero, one := decl("f"), decl("f", "n")
	reg.RegisterAll([]*ast.FuncDecl{zero, one})

	got, err := reg.Resolve("f", 1)
	if err != nil || got != one {
		t.Errorf("Resolve(f, 1) = %v, %v", got, err)
	}
	got, err = reg.Resolve("f", 0)
	if err != nil || got != zero {
		t.Errorf("Resolve(f, 0) = %v, %v", got, err)
	}

	_, err = reg.Resolve("f", 2)
	re := expectCode(t, err, diagnostics.EName)
	if re.Message != "no overload of f takes 2 arguments" {
		t.Errorf("got message %q", re.Message)
	}

	_, err = reg.Resolve("g", 0)
	expectCode(t, err, diagnostics.EName)
}

func TestRegistryResolveFirstOfEqualArity(t *testing.T) {
	reg := evaluator.NewRegistry(nil)
	first, second := decl("f", "a"), decl("f", "b")
	reg.RegisterAll([]*ast.FuncDecl{first, second})

	got, err := reg.Resolve("f", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != first {
		t.Error("expected the first textual definition to win")
	}
	if n := len(reg.Overloads("f")); n != 2 {
		t.Errorf("expected 2 overloads, got %d", n)
	}
}

func TestEnvFlat(t *testing.T) {
	env := evaluator.NewEnv()
	if _, ok := env.Get("x"); ok {
		t.Fatal("expected x unbound")
	}
	env.Set("x", evaluator.NewInt(1))
	env.Set("x", evaluator.NewString("now a string"))
	val, ok := env.Get("x")
	if !ok || !evaluator.Equal(val, evaluator.NewString("now a string")) {
		t.Errorf("got %v, %v", val, ok)
	}
	if env.Len() != 1 {
		t.Errorf("got %d bindings, want 1", env.Len())
	}
}
