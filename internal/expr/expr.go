package expr

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the operation a node performs.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindConst
	KindVar
	KindAdd
	KindMul
	KindNeg
	KindSin
	KindCos
	KindTan
	KindExp
	KindLog
	KindSqrt
	KindPow
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindConst:   "const",
	KindVar:     "var",
	KindAdd:     "add",
	KindMul:     "mul",
	KindNeg:     "neg",
	KindSin:     "sin",
	KindCos:     "cos",
	KindTan:     "tan",
	KindExp:     "exp",
	KindLog:     "log",
	KindSqrt:    "sqrt",
	KindPow:     "pow",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsUnaryFunc reports whether k is one of the single-argument
// transcendental functions.
func (k Kind) IsUnaryFunc() bool {
	switch k {
	case KindSin, KindCos, KindTan, KindExp, KindLog, KindSqrt:
		return true
	}
	return false
}

// Expr is an immutable expression node. The zero value is an invalid node.
type Expr struct {
	kind  Kind
	value float64
	name  string
	args  []*Expr
}

func Const(v float64) *Expr   { return &Expr{kind: KindConst, value: v} }
func Var(name string) *Expr   { return &Expr{kind: KindVar, name: name} }
func Add(a, b *Expr) *Expr    { return &Expr{kind: KindAdd, args: []*Expr{a, b}} }
func Mul(a, b *Expr) *Expr    { return &Expr{kind: KindMul, args: []*Expr{a, b}} }
func Neg(a *Expr) *Expr       { return &Expr{kind: KindNeg, args: []*Expr{a}} }
func Sin(a *Expr) *Expr       { return unary(KindSin, a) }
func Cos(a *Expr) *Expr       { return unary(KindCos, a) }
func Tan(a *Expr) *Expr       { return unary(KindTan, a) }
func Exp(a *Expr) *Expr       { return unary(KindExp, a) }
func Log(a *Expr) *Expr       { return unary(KindLog, a) }
func Sqrt(a *Expr) *Expr      { return unary(KindSqrt, a) }
func Pow(base, p *Expr) *Expr { return &Expr{kind: KindPow, args: []*Expr{base, p}} }

// Sub returns a - b.
func Sub(a, b *Expr) *Expr { return Add(a, Neg(b)) }

// Div returns a / b, represented as a * b^-1.
func Div(a, b *Expr) *Expr { return Mul(a, Pow(b, Const(-1))) }

// Sum folds terms into nested Add nodes. An empty sum is Const(0).
func Sum(terms ...*Expr) *Expr {
	if len(terms) == 0 {
		return Const(0)
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = Add(acc, t)
	}
	return acc
}

// Product folds factors into nested Mul nodes. An empty product is Const(1).
func Product(factors ...*Expr) *Expr {
	if len(factors) == 0 {
		return Const(1)
	}
	acc := factors[0]
	for _, f := range factors[1:] {
		acc = Mul(acc, f)
	}
	return acc
}

// Func builds the single-argument function node of kind k. It returns nil
// when k is not a unary function kind.
func Func(k Kind, a *Expr) *Expr {
	if !k.IsUnaryFunc() {
		return nil
	}
	return unary(k, a)
}

func unary(k Kind, a *Expr) *Expr { return &Expr{kind: k, args: []*Expr{a}} }

// Kind returns the node kind; a nil node reports KindInvalid.
func (e *Expr) Kind() Kind {
	if e == nil {
		return KindInvalid
	}
	return e.kind
}

// Value returns the constant value of a Const node and 0 otherwise.
func (e *Expr) Value() float64 {
	if e.Kind() != KindConst {
		return 0
	}
	return e.value
}

// Name returns the variable name of a Var node and "" otherwise.
func (e *Expr) Name() string {
	if e.Kind() != KindVar {
		return ""
	}
	return e.name
}

// Operands returns a copy of the node's children.
func (e *Expr) Operands() []*Expr {
	if e == nil || len(e.args) == 0 {
		return nil
	}
	out := make([]*Expr, len(e.args))
	copy(out, e.args)
	return out
}

// IsConst reports whether e is the constant v.
func (e *Expr) IsConst(v float64) bool {
	return e.Kind() == KindConst && e.value == v
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindConst:
		return a.value == b.value || (math.IsNaN(a.value) && math.IsNaN(b.value))
	case KindVar:
		return a.name == b.name
	}
	if len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if !Equal(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

// Equal is shorthand for Equal(e, other).
func (e *Expr) Equal(other *Expr) bool { return Equal(e, other) }

// Vars returns the sorted set of variable names referenced by e.
func (e *Expr) Vars() []string {
	seen := make(map[string]struct{})
	e.collectVars(seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Expr) collectVars(seen map[string]struct{}) {
	if e == nil {
		return
	}
	if e.kind == KindVar {
		seen[e.name] = struct{}{}
		return
	}
	for _, a := range e.args {
		a.collectVars(seen)
	}
}

// Substitute returns a copy of e with every Var(name) replaced by value.
// Untouched subtrees are shared with e.
func (e *Expr) Substitute(name string, value *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.kind {
	case KindConst:
		return e
	case KindVar:
		if e.name == name {
			return value
		}
		return e
	}
	args := make([]*Expr, len(e.args))
	for i, a := range e.args {
		args[i] = a.Substitute(name, value)
	}
	return rebuild(e, args...)
}

// rebuild returns e itself when args are the node's current children, and a
// fresh node of the same kind otherwise.
func rebuild(e *Expr, args ...*Expr) *Expr {
	same := len(args) == len(e.args)
	for i := 0; same && i < len(args); i++ {
		same = args[i] == e.args[i]
	}
	if same {
		return e
	}
	return &Expr{kind: e.kind, args: args}
}

// Size returns the number of nodes in the tree.
func (e *Expr) Size() int {
	if e == nil {
		return 0
	}
	n := 1
	for _, a := range e.args {
		n += a.Size()
	}
	return n
}

func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.Kind() {
	case KindInvalid:
		sb.WriteString("<invalid>")
	case KindConst:
		sb.WriteString(strconv.FormatFloat(e.value, 'g', -1, 64))
	case KindVar:
		sb.WriteString(e.name)
	case KindAdd:
		writeBinary(sb, e.args[0], " + ", e.args[1])
	case KindMul:
		writeBinary(sb, e.args[0], " * ", e.args[1])
	case KindPow:
		writeBinary(sb, e.args[0], "^", e.args[1])
	case KindNeg:
		sb.WriteString("(-")
		e.args[0].write(sb)
		sb.WriteByte(')')
	default:
		sb.WriteString(e.kind.String())
		sb.WriteByte('(')
		e.args[0].write(sb)
		sb.WriteByte(')')
	}
}

func writeBinary(sb *strings.Builder, a *Expr, op string, b *Expr) {
	sb.WriteByte('(')
	a.write(sb)
	sb.WriteString(op)
	b.write(sb)
	sb.WriteByte(')')
}
