// Package expr implements a small symbolic expression algebra over float64
// scalars.
//
// An expression is an immutable tree of [*Expr] nodes. The set of node kinds
// is closed (see [Kind]) and nodes are built with typed constructors:
//
//   - leaves: [Const], [Var]
//   - algebra: [Add], [Mul], [Neg], [Pow] and the derived [Sub], [Div], [Sum], [Product]
//   - transcendental: [Sin], [Cos], [Tan], [Exp], [Log], [Sqrt]
//
// Every node can be evaluated numerically ([Expr.Eval], [Expr.Compile]),
// differentiated symbolically ([Expr.Diff]) and simplified ([Simplify],
// [SimplifyFixed]). Structural comparison is done with [Equal].
//
// # Example
//
//	x := expr.Var("x")
//	f := expr.Mul(expr.Sin(x), x)
//	df, _ := f.Diff("x")
//	v, _ := expr.SimplifyFixed(df).Eval(map[string]float64{"x": 1})
//
// # Thread Safety
//
// Nodes are never mutated after construction, so trees may be shared freely
// between goroutines.
package expr
