package integrators_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/symode/internal/dynamo"
	"github.com/san-kum/symode/internal/expr"
	"github.com/san-kum/symode/internal/integrators"
	"github.com/san-kum/symode/internal/ode"
)

// linearDecay is y' = -rate*y with its Jacobian.
func linearDecay(rate float64) dynamo.FuncSystem {
	return dynamo.FuncSystem{
		N: 1,
		F: func(t float64, y dynamo.State) (dynamo.State, error) {
			return dynamo.State{-rate * y[0]}, nil
		},
		J: func(t float64, y dynamo.State) (*mat.Dense, error) {
			return mat.NewDense(1, 1, []float64{-rate}), nil
		},
	}
}

func oscillator() dynamo.FuncSystem {
	return dynamo.FuncSystem{
		N: 2,
		F: func(t float64, y dynamo.State) (dynamo.State, error) {
			return dynamo.State{y[1], -y[0]}, nil
		},
	}
}

func scalarModel(rhs func(x *expr.Expr) *expr.Expr) *ode.Model {
	x := expr.Var("x")
	m, err := ode.New([]*expr.Expr{x}, []*expr.Expr{rhs(x)})
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Solve", func() {
	var (
		ctx  context.Context
		opts integrators.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = integrators.DefaultOptions()
	})

	Describe("rk45", func() {
		It("solves exponential decay", func() {
			res, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))
			Expect(res.Err).To(BeNil())

			tf, y := res.Final()
			Expect(tf).To(Equal(1.0))
			Expect(y[0]).To(BeNumerically("~", math.Exp(-1), 1e-4))
		})

		It("records a strictly increasing trajectory starting at the initial condition", func() {
			res, err := integrators.Solve(ctx, oscillator(), [2]float64{0, 3}, []float64{1, 0}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Times).To(HaveLen(len(res.States)))
			Expect(res.Times[0]).To(Equal(0.0))
			Expect(res.States[0]).To(Equal(dynamo.State{1, 0}))
			for i := 1; i < res.Len(); i++ {
				Expect(res.Times[i]).To(BeNumerically(">", res.Times[i-1]))
			}
			Expect(res.Stats.Accepted).To(Equal(res.Len() - 1))
		})

		It("keeps accepted steps within h_max and grows them at most twofold", func() {
			opts.HMax = 0.05
			res, err := integrators.Solve(ctx, oscillator(), [2]float64{0, 5}, []float64{1, 0}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Times[1] - res.Times[0]).To(BeNumerically("<=", opts.H0+1e-15))
			prev := 0.0
			for i := 1; i < res.Len(); i++ {
				h := res.Times[i] - res.Times[i-1]
				Expect(h).To(BeNumerically("<=", opts.HMax+1e-12))
				if prev > 0 {
					Expect(h / prev).To(BeNumerically("<=", 2+1e-9))
				}
				prev = h
			}
		})

		It("tracks the harmonic oscillator over one period", func() {
			opts.Rtol, opts.Atol = 1e-10, 1e-12
			res, err := integrators.Solve(ctx, oscillator(), [2]float64{0, 2 * math.Pi}, []float64{1, 0}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())

			_, y := res.Final()
			Expect(y[0]).To(BeNumerically("~", 1, 1e-6))
			Expect(y[1]).To(BeNumerically("~", 0, 1e-6))
		})

		It("makes seven RHS evaluations per attempted step", func() {
			res, err := integrators.Solve(ctx, linearDecay(3), [2]float64{0, 2}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stats.RHSEvals).To(Equal(7 * (res.Stats.Accepted + res.Stats.Rejected)))
		})

		It("reports a step that shrinks below h_min", func() {
			opts.H0, opts.HMin, opts.HMax = 0.1, 0.01, 0.1
			res, err := integrators.Solve(ctx, linearDecay(1000), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusStepTooSmall))
			Expect(res.Err).To(MatchError(dynamo.ErrStepTooSmall))
			Expect(res.Len()).To(Equal(1))
			Expect(res.Stats.Rejected).To(BeNumerically(">", 0))
		})

		It("reports an exhausted step budget", func() {
			opts.MaxSteps = 5
			res, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusMaxSteps))
			Expect(res.Err).To(MatchError(dynamo.ErrMaxSteps))
			Expect(res.Len()).To(BeNumerically("<=", 6))
		})

		It("logs rejections and the terminal failure", func() {
			core, logs := observer.New(zapcore.DebugLevel)
			opts.Logger = zap.New(core)
			opts.H0, opts.HMin, opts.HMax = 0.1, 0.01, 0.1

			_, err := integrators.Solve(ctx, linearDecay(1000), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs.FilterMessage("step rejected").Len()).To(BeNumerically(">", 0))
			Expect(logs.FilterMessage("integration stopped").Len()).To(Equal(1))
		})

		It("accepts exact steps on a zero state with a zero absolute tolerance", func() {
			opts.Atol = 0
			res, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{0}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))
			Expect(res.Stats.Rejected).To(BeZero())

			tf, _ := res.Final()
			Expect(tf).To(Equal(1.0))
			for _, y := range res.States {
				Expect(y[0]).To(BeZero())
			}
		})

		It("returns only the initial point for an empty interval", func() {
			res, err := integrators.Solve(ctx, linearDecay(1), [2]float64{2, 2}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))
			Expect(res.Len()).To(Equal(1))
		})
	})

	Describe("implicit_euler", func() {
		It("damps a stiff decay by 1/(1+1000h) per step", func() {
			model := scalarModel(func(x *expr.Expr) *expr.Expr { return expr.Mul(expr.Const(-1000), x) })
			opts.H0 = 1.0 / 128
			res, err := integrators.Solve(ctx, model, [2]float64{0, 1.0 / 16}, []float64{1}, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))
			Expect(res.Len()).To(Equal(9))

			ratio := 1 / (1 + 1000.0/128)
			for i := 1; i < res.Len(); i++ {
				prev, cur := res.States[i-1][0], res.States[i][0]
				Expect(cur).To(BeNumerically(">", 0))
				Expect(cur).To(BeNumerically("<", prev))
				Expect(cur / prev).To(BeNumerically("~", ratio, 1e-9))
			}
		})

		It("decays a stiff system monotonically with h = 0.01", func() {
			model := scalarModel(func(x *expr.Expr) *expr.Expr { return expr.Mul(expr.Const(-1000), x) })
			opts.H0 = 0.01
			res, err := integrators.Solve(ctx, model, [2]float64{0, 1}, []float64{1}, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))
			Expect(res.Len()).To(Equal(101))

			for i := 1; i < res.Len(); i++ {
				prev, cur := res.States[i-1][0], res.States[i][0]
				Expect(cur).To(BeNumerically(">=", 0))
				Expect(cur).To(BeNumerically("<=", prev))
			}
			tf, y := res.Final()
			Expect(tf).To(Equal(1.0))
			Expect(y[0]).To(BeNumerically("<", 1e-8))
		})

		It("evaluates the Jacobian once per Newton iteration", func() {
			model := scalarModel(func(x *expr.Expr) *expr.Expr { return expr.Neg(expr.Pow(x, expr.Const(3))) })
			res, err := integrators.Solve(ctx, model, [2]float64{0, 0.5}, []float64{1}, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stats.NewtonIters).To(BeNumerically(">", 0))
			Expect(res.Stats.JacobianEvals).To(Equal(res.Stats.NewtonIters))
		})

		It("agrees with rk45 on the damped pendulum to first order", func() {
			th, om := expr.Var("theta"), expr.Var("omega")
			model, err := ode.New(
				[]*expr.Expr{th, om},
				[]*expr.Expr{om, expr.Sub(expr.Neg(expr.Sin(th)), expr.Mul(expr.Const(0.2), om))},
			)
			Expect(err).NotTo(HaveOccurred())

			span := [2]float64{0, 2}
			y0 := []float64{1, 0}
			ref, err := integrators.Solve(ctx, model, span, y0, integrators.MethodRK45, opts)
			Expect(err).NotTo(HaveOccurred())
			imp, err := integrators.Solve(ctx, model, span, y0, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())

			_, want := ref.Final()
			_, got := imp.Final()
			Expect(got[0]).To(BeNumerically("~", want[0], 1e-2))
			Expect(got[1]).To(BeNumerically("~", want[1], 1e-2))
		})

		It("fails fast when the system has no Jacobian", func() {
			res, err := integrators.Solve(ctx, oscillator(), [2]float64{0, 1}, []float64{1, 0}, integrators.MethodImplicitEuler, opts)
			Expect(err).To(MatchError(dynamo.ErrNoJacobian))
			Expect(res).To(BeNil())
		})

		It("reports Newton non-convergence", func() {
			// y1 = 1 + y1^2 has no real root; the iterates cycle between 1 and 0.
			model := scalarModel(func(x *expr.Expr) *expr.Expr { return expr.Pow(x, expr.Const(2)) })
			opts.H0, opts.HMax = 1, 1
			res, err := integrators.Solve(ctx, model, [2]float64{0, 2}, []float64{1}, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusNewtonDiverged))
			Expect(res.Err).To(MatchError(dynamo.ErrNewtonDiverged))
			Expect(res.Len()).To(Equal(1))
			Expect(res.Stats.NewtonIters).To(Equal(opts.NewtonMaxIter))
		})

		It("reports a singular Newton matrix", func() {
			// I - hJ = 1 - 0.01*100 = 0
			model := scalarModel(func(x *expr.Expr) *expr.Expr { return expr.Mul(expr.Const(100), x) })
			opts.H0 = 0.01
			res, err := integrators.Solve(ctx, model, [2]float64{0, 1}, []float64{1}, integrators.MethodImplicitEuler, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSingular))
			Expect(res.Err).To(MatchError(dynamo.ErrSingularMatrix))
			Expect(res.Len()).To(Equal(1))
		})
	})

	DescribeTable("fixed-step methods on exponential decay",
		func(method integrators.Method, tol float64, evalsPerStep int) {
			res, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, method, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(integrators.StatusSuccess))

			tf, y := res.Final()
			Expect(tf).To(Equal(1.0))
			Expect(y[0]).To(BeNumerically("~", math.Exp(-1), tol))
			Expect(res.Stats.RHSEvals).To(Equal(evalsPerStep * res.Stats.Accepted))
		},
		Entry("rk4", integrators.MethodRK4, 1e-9, 4),
		Entry("euler", integrators.MethodEuler, 1e-3, 1),
	)

	Describe("argument checks", func() {
		DescribeTable("invalid options",
			func(mutate func(*integrators.Options)) {
				mutate(&opts)
				_, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
				Expect(err).To(MatchError(dynamo.ErrInvalidOptions))
			},
			Entry("zero h0", func(o *integrators.Options) { o.H0 = 0 }),
			Entry("h_min above h_max", func(o *integrators.Options) { o.HMin, o.HMax = 1, 0.5 }),
			Entry("h0 above h_max", func(o *integrators.Options) { o.H0 = 1 }),
			Entry("h0 below h_min", func(o *integrators.Options) { o.HMin = 0.01 }),
			Entry("negative rtol", func(o *integrators.Options) { o.Rtol = -1 }),
			Entry("zero tolerances", func(o *integrators.Options) { o.Rtol, o.Atol = 0, 0 }),
			Entry("no step budget", func(o *integrators.Options) { o.MaxSteps = 0 }),
			Entry("no Newton budget", func(o *integrators.Options) { o.NewtonMaxIter = 0 }),
		)

		It("rejects an unknown method", func() {
			_, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, "leapfrog", opts)
			Expect(err).To(MatchError(dynamo.ErrUnknownMethod))
		})

		It("rejects an initial condition of the wrong length", func() {
			_, err := integrators.Solve(ctx, linearDecay(1), [2]float64{0, 1}, []float64{1, 2}, integrators.MethodRK45, opts)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects a reversed interval", func() {
			_, err := integrators.Solve(ctx, linearDecay(1), [2]float64{1, 0}, []float64{1}, integrators.MethodRK45, opts)
			Expect(err).To(MatchError(dynamo.ErrInvalidOptions))
		})

		It("parses method names", func() {
			for _, m := range integrators.Methods() {
				got, err := integrators.ParseMethod(string(m))
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(m))
			}
			_, err := integrators.ParseMethod("RK45")
			Expect(err).To(MatchError(dynamo.ErrUnknownMethod))
		})
	})

	Describe("evaluation failures", func() {
		It("aborts with a SimulationError and no result", func() {
			// sqrt(1 - t) leaves its domain once t passes 1
			model := scalarModel(func(x *expr.Expr) *expr.Expr {
				return expr.Sqrt(expr.Sub(expr.Const(1), expr.Var("t")))
			})
			opts.H0 = 0.1
			res, err := integrators.Solve(ctx, model, [2]float64{0, 2}, []float64{0}, integrators.MethodEuler, opts)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(expr.ErrDomain))

			var se *dynamo.SimulationError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Time).To(BeNumerically(">", 1))
			Expect(se.Step).To(BeNumerically(">=", 10))
		})
	})

	It("returns the partial result when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res, err := integrators.Solve(cctx, linearDecay(1), [2]float64{0, 1}, []float64{1}, integrators.MethodRK45, opts)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res).NotTo(BeNil())
		Expect(res.Status).To(Equal(integrators.StatusCanceled))
		Expect(res.Len()).To(Equal(1))
	})
})
