package frontend

import (
	"bytes"
	"testing"

	"github.com/fusabi-lang/fusabi/vm"
)

// run compiles source and executes its main function.
func run(t *testing.T, source string) (vm.Value, error) {
	t.Helper()
	chunk, err := Compile("test", source)
	if err != nil {
		t.Fatal(err)
	}
	return vm.NewVM().Execute(chunk)
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   vm.Value
	}{
		{"addition", "fn main() { return 1 + 1; }", vm.FromInt(2)},
		{"precedence", "fn main() { return 1 + 2 * 3; }", vm.FromInt(7)},
		{"parens", "fn main() { return (1 + 2) * 3; }", vm.FromInt(9)},
		{"float math", "fn main() { return 1.5 * 2.0; }", vm.FromFloat(3)},
		{"mixed math", "fn main() { return 1 + 0.5; }", vm.FromFloat(1.5)},
		{"negation", "fn main() { return -(2 + 3); }", vm.FromInt(-5)},
		{"modulo", "fn main() { return 10 % 3; }", vm.FromInt(1)},
		{"string concat", `fn main() { return "foo" + "bar"; }`, vm.FromString("foobar")},
		{"comparison", "fn main() { return 2 < 3; }", vm.True},
		{"equality", "fn main() { return 1 == 1.0; }", vm.True},
		{"not", "fn main() { return !false; }", vm.True},
		{"nil literal", "fn main() { return nil; }", vm.Nil},
		{"bare return", "fn main() { return; }", vm.Nil},
		{"implicit return", "fn main() { let x = 1; }", vm.Nil},

		{"let and assign", "fn main() { let x = 10; x = x + 5; return x; }", vm.FromInt(15)},
		{"if then", "fn main() { if (true) { return 1; } return 2; }", vm.FromInt(1)},
		{"if else", "fn main() { if (1 > 2) { return 1; } else { return 2; } }", vm.FromInt(2)},
		{"while loop", `
			fn main() {
				let sum = 0;
				let i = 1;
				while (i <= 10) {
					sum = sum + i;
					i = i + 1;
				}
				return sum;
			}`, vm.FromInt(55)},

		{"and short circuit", "fn main() { return false && 1 / 0 == 0; }", vm.False},
		{"or short circuit", "fn main() { return true || 1 / 0 == 0; }", vm.True},
		{"and both true", "fn main() { return 1 < 2 && 2 < 3; }", vm.True},

		{"call", "fn double(x) { return x * 2; } fn main() { return double(21); }", vm.FromInt(42)},
		{"forward call", "fn main() { return later(); } fn later() { return 7; }", vm.FromInt(7)},
		{"recursion", `
			fn fib(n) {
				if (n < 2) { return n; }
				return fib(n - 1) + fib(n - 2);
			}
			fn main() { return fib(10); }`, vm.FromInt(55)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.source)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompilePrintBuiltin(t *testing.T) {
	chunk, err := Compile("test", `fn main() { print("hi"); print(42); return 0; }`)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	m := vm.NewVM()
	m.Stdout = &out
	if _, err := m.Execute(chunk); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hi\n42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCompileDeterministic(t *testing.T) {
	source := `
		fn helper(a, b) { return a * b + 1; }
		fn main() {
			let x = helper(2, 3);
			while (x > 0) { x = x - 1; }
			return x;
		}
	`

	first, err := Compile("test", source)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compile("test", source)
	if err != nil {
		t.Fatal(err)
	}

	a, err := vm.Serialize(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := vm.Serialize(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("compiling the same source twice produced different bytecode")
	}
}

func TestCompileConstantPooling(t *testing.T) {
	chunk, err := Compile("test", "fn main() { return 1 + 1 + 1; }")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk.Constants) != 1 {
		t.Errorf("constant count = %d, want 1", len(chunk.Constants))
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"undefined variable", "fn main() { return x; }"},
		{"assign to undeclared", "fn main() { x = 1; }"},
		{"redeclared variable", "fn main() { let x = 1; let x = 2; }"},
		{"duplicate parameter", "fn f(a, a) { } fn main() { }"},
		{"redefined function", "fn f() { } fn f() { } fn main() { }"},
		{"undefined function", "fn main() { return g(); }"},
		{"arity mismatch", "fn f(a) { } fn main() { f(1, 2); }"},
		{"print arity", "fn main() { print(1, 2); }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("test", tt.source)
			if err == nil {
				t.Fatalf("Compile(%q) did not fail", tt.source)
			}
			if _, ok := err.(*CompileError); !ok {
				t.Errorf("err = %T (%v), want *CompileError", err, err)
			}
		})
	}
}

func TestCompileStageErrors(t *testing.T) {
	// Each stage fails with its own error type.
	if _, err := Compile("test", "fn main() { let x = @; }"); err != nil {
		if _, ok := err.(*LexError); !ok {
			t.Errorf("lex failure surfaced as %T", err)
		}
	} else {
		t.Error("lex failure not detected")
	}

	if _, err := Compile("test", "fn main() { return ;"); err != nil {
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("parse failure surfaced as %T", err)
		}
	} else {
		t.Error("parse failure not detected")
	}
}

func TestCompiledFunctionMetadata(t *testing.T) {
	chunk, err := Compile("test", "fn main() { let a = 1; let b = 2; return a + b; } fn f(x, y) { return x; }")
	if err != nil {
		t.Fatal(err)
	}

	main, ok := chunk.FunctionByName("main")
	if !ok {
		t.Fatal("main not in function table")
	}
	if main.Arity != 0 || main.Locals != 2 {
		t.Errorf("main = %+v, want arity 0 locals 2", main)
	}

	f, ok := chunk.FunctionByName("f")
	if !ok {
		t.Fatal("f not in function table")
	}
	if f.Arity != 2 || f.Locals != 0 {
		t.Errorf("f = %+v, want arity 2 locals 0", f)
	}
}
