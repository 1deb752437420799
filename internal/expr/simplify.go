package expr

// maxSimplifyPasses bounds SimplifyFixed.
const maxSimplifyPasses = 64

// Simplify performs one bottom-up rewriting pass over e: constant folding,
// the additive and multiplicative identities, double negation, trivial
// powers, and folding of functions applied to constants. A fold that would
// raise a domain fault is left in place so evaluation still reports it.
//
// The pass is idempotent: Simplify(Simplify(e)) is structurally equal to
// Simplify(e).
func Simplify(e *Expr) *Expr {
	switch k := e.Kind(); {
	case k == KindInvalid, k == KindConst, k == KindVar:
		return e
	case k == KindNeg:
		return simplifyNeg(e)
	case k == KindAdd:
		return simplifyAdd(e)
	case k == KindMul:
		return simplifyMul(e)
	case k == KindPow:
		return simplifyPow(e)
	case k.IsUnaryFunc():
		x := Simplify(e.args[0])
		if x.kind == KindConst {
			if v, err := applyUnary(k, x.value); err == nil {
				return Const(v)
			}
		}
		return rebuild(e, x)
	}
	return e
}

func simplifyNeg(e *Expr) *Expr {
	x := Simplify(e.args[0])
	switch x.Kind() {
	case KindConst:
		return Const(-x.value)
	case KindNeg:
		return x.args[0]
	}
	return rebuild(e, x)
}

func simplifyAdd(e *Expr) *Expr {
	a, b := Simplify(e.args[0]), Simplify(e.args[1])
	switch {
	case a.Kind() == KindConst && b.Kind() == KindConst:
		return Const(a.value + b.value)
	case b.IsConst(0):
		return a
	case a.IsConst(0):
		return b
	}
	return rebuild(e, a, b)
}

func simplifyMul(e *Expr) *Expr {
	a, b := Simplify(e.args[0]), Simplify(e.args[1])
	switch {
	case a.Kind() == KindConst && b.Kind() == KindConst:
		return Const(a.value * b.value)
	case a.IsConst(0), b.IsConst(0):
		return Const(0)
	case a.IsConst(1):
		return b
	case b.IsConst(1):
		return a
	}
	return rebuild(e, a, b)
}

func simplifyPow(e *Expr) *Expr {
	base, p := Simplify(e.args[0]), Simplify(e.args[1])
	switch {
	case p.IsConst(1):
		return base
	case p.IsConst(0):
		return Const(1)
	case base.Kind() == KindConst && p.Kind() == KindConst:
		if v, err := applyPow(base.value, p.value); err == nil {
			return Const(v)
		}
	}
	return rebuild(e, base, p)
}

// SimplifyFixed applies Simplify until the tree stops changing structurally,
// giving up after a fixed number of passes.
func SimplifyFixed(e *Expr) *Expr {
	cur := e
	for i := 0; i < maxSimplifyPasses; i++ {
		next := Simplify(cur)
		if Equal(next, cur) {
			return next
		}
		cur = next
	}
	return cur
}
