package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ember/internal/compiler"
	"ember/internal/diag"
	"ember/internal/object"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/vm"
)

// machine is a compile session with a VM attached, like one REPL.
type machine struct {
	t       *testing.T
	session *compiler.Session
	vm      *vm.VM
	out     *bytes.Buffer
	fs      *source.FileSet
}

func newMachine(t *testing.T, opts vm.Options) *machine {
	t.Helper()
	heap := object.NewHeap(object.Config{})
	s := compiler.NewSession(heap)
	out := &bytes.Buffer{}
	opts.Stdout = out
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	opts.GlobalName = func(slot int) string {
		names := s.Globals.Names()
		if slot < len(names) {
			return names[slot]
		}
		return ""
	}
	m := &machine{t: t, session: s, vm: vm.New(heap, s.Chunk, opts), out: out, fs: source.NewFileSet()}
	if err := m.vm.InstallNatives(s.Globals); err != nil {
		t.Fatalf("install natives: %v", err)
	}
	return m
}

// exec compiles and runs one unit. Compile failures are fatal.
func (m *machine) exec(src string) error {
	m.t.Helper()
	file := m.fs.Get(m.fs.AddVirtual("test.em", []byte(src)))
	bag := diag.NewBag(0)
	entry, err := m.session.Compile(file, compiler.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		var msgs []string
		for _, d := range bag.Items() {
			msgs = append(msgs, d.Code.String()+" "+d.Message)
		}
		m.t.Fatalf("compile %q: %v %v", src, err, msgs)
	}
	return m.vm.Run(entry)
}

func runProgram(t *testing.T, src string) string {
	t.Helper()
	m := newMachine(t, vm.Options{})
	if err := m.exec(src); err != nil {
		t.Fatalf("run: %v", err)
	}
	return m.out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic",
			src:  `print(1 + 2 * 3); print(7 / 2); print(7.0 / 2); print(-7 % 3); print(1 + 2.5);`,
			want: "7\n3\n3.5\n-1\n3.5\n",
		},
		{
			name: "strings",
			src:  `print("a" + "b"); print("abc" < "abd"); print("abc"[1]); print(len("héllo"));`,
			want: "ab\ntrue\nb\n6\n",
		},
		{
			name: "interpolation",
			src:  `var n = 3; print("n=${n}, f=${n * 0.5}!");`,
			want: "n=3, f=1.5!\n",
		},
		{
			name: "logical operators yield operands",
			src:  `print(null || "d"); print(1 && 2); print(false && undefinedName);`,
			want: "d\n2\nfalse\n",
		},
		{
			name: "equality with null",
			src:  `print(1 == null); print(null == "a"); print(null != 0); print(null == null); print("a" == "a"); print(1 != 2);`,
			want: "true\ntrue\nfalse\ntrue\ntrue\ntrue\n",
		},
		{
			name: "shifts",
			src:  `print(-8 >> 1); print(-1 >>> 60); print(1 << 62); print(1 << 64); print(~0);`,
			want: "-4\n15\n4611686018427387904\n0\n-1\n",
		},
		{
			name: "integer division wraps",
			src:  `var m = -9223372036854775807 - 1; print(m / -1); print(m % -1);`,
			want: "-9223372036854775808\n0\n",
		},
		{
			name: "casts",
			src: `print(int("0x1F")); print(int("0б101")); print(int(3.9)); print(int(-3.9));
print(float(2)); print(str(2.0)); print(bool("")); print(bool(0.5)); print(str(null)); print(int(true));`,
			want: "31\n5\n3\n-3\n2.0\n2.0\nfalse\ntrue\nnull\n1\n",
		},
		{
			name: "upvalue shared between calls",
			src: `func outer(){ var x = 1; func inner(){ x += 1; return x; } return inner; }
var next = outer();
print(next());
print(next());`,
			want: "2\n3\n",
		},
		{
			name: "recursive function declaration",
			src:  `func fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print(fib(15));`,
			want: "610\n",
		},
		{
			name: "integer literals print in decimal",
			src: `print(str(0xFF)); print(str(0хFF)); print(str(0б1010)); print(str(0о17));
print(str(int("0хFF"))); print(str(int("0б1010"))); print(str(int("0о17"))); print(str(0xFF) == "255");`,
			want: "255\n255\n10\n15\n255\n10\n15\ntrue\n",
		},
		{
			name: "cyrillic radix literal",
			src:  `print(0х10 + 0о7);`,
			want: "23\n",
		},
		{
			name: "loops with break and continue",
			src: `var n = 0;
for (var i = 0; i < 10; i += 1) {
  if (i == 5) continue;
  if (i == 8) break;
  n += i;
}
while (n > 20) n -= 1;
print(n);`,
			want: "20\n",
		},
		{
			name: "recursion",
			src:  `func fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print(fib(15));`,
			want: "610\n",
		},
		{
			name: "closures share captured variable",
			src: `func make() {
  var x = 1;
  func inc() { x = x + 1; return x; }
  func get() { return x; }
  return [inc, get];
}
var fs = make();
fs[0]();
print(fs[1]());
fs[0]();
print(fs[1]());`,
			want: "2\n3\n",
		},
		{
			name: "closure captures through two levels",
			src: `func outer() {
  var a = "x";
  func middle() { func inner() { return a + "y"; } return inner; }
  return middle();
}
print(outer()());`,
			want: "xy\n",
		},
		{
			name: "each iteration local is closed separately",
			src: `var fs = array(3);
for (var i = 0; i < 3; i += 1) { var j = i; fs[i] = func() { return j; }; }
print(fs[0]() + fs[1]() + fs[2]());`,
			want: "3\n",
		},
		{
			name: "classes",
			src: `class Point {
  var x = 0;
  var y = 0;
  private var secret = 42;
  func init(x, y) { this.x = x; this.y = y; }
  func sum() { return this.x + this.y + this.secret; }
}
var p = Point(1, 2);
print(p.sum());
p.x += 10;
print(p.x);
print(p);
print(Point);
var m = p.sum;
print(m());`,
			want: "45\n11\n<Point instance>\n<class Point>\n55\n",
		},
		{
			name: "instances do not share fields",
			src: `class C { var n = 0; func bump() { this.n += 1; return this; } }
var a = C(); var b = C();
a.bump().bump();
print(a.n); print(b.n);`,
			want: "2\n0\n",
		},
		{
			name: "anonymous functions and natives",
			src:  `var f = func(a) { return a * 2; }; print(f(4)); print(f); print(print); print(typeof(f)); print(typeof(1.5));`,
			want: "8\n<fn anonymous>\n<native print>\nfunction\nfloat\n",
		},
		{
			name: "arrays",
			src:  `var a = array(3); a[1] = [5]; print(a); print(len(a)); a[1][0] += 1; print(a[1]);`,
			want: "[null, [5], null]\n3\n[6]\n",
		},
		{
			name: "forward global reference",
			src:  `func f() { return later; } var later = 5; print(f());`,
			want: "5\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runProgram(t, tt.src); got != tt.want {
				t.Fatalf("output:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want vm.Code
	}{
		{"int division", "1 / 0;", vm.DivideByZero},
		{"float modulo", "1.0 % 0.0;", vm.DivideByZero},
		{"float division", "1.5 / 0;", vm.DivideByZero},
		{"negative shift", "1 << -1;", vm.NegativeShift},
		{"array index", "[1][3];", vm.OutOfBounds},
		{"negative index", `"abc"[-1];`, vm.OutOfBounds},
		{"string minus int", `"a" - 1;`, vm.TypeMismatch},
		{"int equals float", "1 == 1.0;", vm.TypeMismatch},
		{"bitwise on float", "1.0 & 1;", vm.TypeMismatch},
		{"compare string and int", `"a" < 1;`, vm.TypeMismatch},
		{"string index assignment", `var s = "abc"; s[0] = "x";`, vm.TypeMismatch},
		{"undefined global", "nowhere;", vm.Undefined},
		{"undefined global assignment", "func f() { nowhere = 1; } f();", vm.Undefined},
		{"undefined attribute", "class A {} A().b;", vm.Undefined},
		{"call int", "3();", vm.NotCallable},
		{"arity", "func f(a) {} f();", vm.Arity},
		{"class without init takes no args", "class A {} A(1);", vm.Arity},
		{"private read", "class A { private var s = 1; } A().s;", vm.Visibility},
		{"protected write", "class A { protected var s = 1; } var a = A(); a.s = 2;", vm.Visibility},
		{"const attribute", "class A { const k = 1; } var a = A(); a.k = 2;", vm.ConstViolation},
		{"method overwrite", "class A { func m() {} } var a = A(); a.m = 1;", vm.ConstViolation},
		{"call depth", "func f() { return f(); } f();", vm.StackOverflow},
		{"bad int string", `int("zz");`, vm.BadCast},
		{"int of null", "int(null);", vm.BadCast},
		{"padded decimal string", `int("000000000000000000001");`, vm.BadCast},
		{"float of array", "float([]);", vm.BadCast},
		{"len of int", "len(1);", vm.TypeMismatch},
		{"negative array", "array(-1);", vm.OutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, vm.Options{})
			err := m.exec(tt.src)
			var rtErr *vm.Error
			if !errors.As(err, &rtErr) {
				t.Fatalf("err = %v, want runtime error", err)
			}
			if rtErr.Code != tt.want {
				t.Fatalf("code = %s (%s), want %s", rtErr.Code, rtErr.Message, tt.want)
			}
		})
	}
}

func TestValueStackOverflow(t *testing.T) {
	m := newMachine(t, vm.Options{StackMax: 8})
	err := m.exec("[1, 2, 3, 4, 5, 6, 7, 8, 9];")
	var rtErr *vm.Error
	if !errors.As(err, &rtErr) || rtErr.Code != vm.StackOverflow {
		t.Fatalf("err = %v", err)
	}
}

func TestRuntimeErrorLineAndTrace(t *testing.T) {
	m := newMachine(t, vm.Options{})
	src := `func inner() {
  return 1 / 0;
}
func outer() {
  return inner();
}
outer();`
	err := m.exec(src)
	var rtErr *vm.Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("err = %v", err)
	}
	if rtErr.Line != 2 {
		t.Errorf("line = %d, want 2", rtErr.Line)
	}
	want := []vm.TraceFrame{{Func: "inner", Line: 2}, {Func: "outer", Line: 5}, {Func: "script", Line: 7}}
	if len(rtErr.Trace) != len(want) {
		t.Fatalf("trace = %+v", rtErr.Trace)
	}
	for i := range want {
		if rtErr.Trace[i] != want[i] {
			t.Errorf("frame %d = %+v, want %+v", i, rtErr.Trace[i], want[i])
		}
	}
	text := rtErr.FormatWithSource(nil)
	if !strings.Contains(text, "VM1002") || !strings.Contains(text, "backtrace:") {
		t.Errorf("formatted:\n%s", text)
	}
}

func TestStackResetsAfterRuntimeError(t *testing.T) {
	m := newMachine(t, vm.Options{})
	if err := m.exec("var a = 1; var keep;"); err != nil {
		t.Fatal(err)
	}
	src := `func mk() {
  var c = 10;
  keep = func() { return c; };
  return 1 / 0;
}
mk();`
	if err := m.exec(src); err == nil {
		t.Fatal("expected runtime error")
	}
	if d := m.vm.StackDepth(); d != 0 {
		t.Fatalf("stack depth after error = %d", d)
	}
	if err := m.exec(`print(a + keep());`); err != nil {
		t.Fatalf("next unit: %v", err)
	}
	if got := m.out.String(); got != "11\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestStackEmptyAfterEachRuntimeError(t *testing.T) {
	m := newMachine(t, vm.Options{})
	for _, src := range []string{"1 / 0;", "var a = [1, 2]; print(a[5]);", `"text"(1, 2);`} {
		if err := m.exec(src); err == nil {
			t.Fatalf("%q: expected runtime error", src)
		}
		if d := m.vm.StackDepth(); d != 0 {
			t.Fatalf("%q: stack depth after error = %d", src, d)
		}
	}
	if err := m.exec(`print(1 + 1);`); err != nil {
		t.Fatalf("next unit: %v", err)
	}
	if got := m.out.String(); got != "2\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestGCStressKeepsReachableObjects(t *testing.T) {
	m := newMachine(t, vm.Options{GCStress: true})
	src := `class Node { var value; var next; func init(v, n) { this.value = v; this.next = n; } }
var list = null;
for (var i = 0; i < 20; i += 1) {
  var label = "n" + str(i);
  list = Node(label, list);
}
var total = "";
func walk(n) { var parts = []; while (n) { total = total + n.value; n = n.next; } return total; }
print(len(walk(list)));
var f = func() { return list.value; };
print(f());`
	if err := m.exec(src); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := m.out.String(), "50\nn19\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	st := m.vm.Stats()
	if st.Collections == 0 || st.Freed == 0 {
		t.Fatalf("stats = %+v, expected collections that free garbage", st)
	}
}

func TestInputReadsLines(t *testing.T) {
	m := newMachine(t, vm.Options{Stdin: strings.NewReader("hello\r\nworld")})
	if err := m.exec("print(input()); print(input()); print(input());"); err != nil {
		t.Fatal(err)
	}
	if got, want := m.out.String(), "hello\nworld\nnull\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTracerSeesInstructionsAndCollections(t *testing.T) {
	ring := trace.NewRingTracer(4096, trace.LevelDebug)
	m := newMachine(t, vm.Options{Tracer: ring, GCStress: true})
	if err := m.exec(`print("x" + "y");`); err != nil {
		t.Fatal(err)
	}
	var ops, gcs int
	for _, ev := range ring.Snapshot() {
		switch ev.Name {
		case "op":
			ops++
		case "gc":
			gcs++
		}
	}
	if ops == 0 || gcs == 0 {
		t.Fatalf("ops = %d, gc = %d", ops, gcs)
	}
}
