package sim_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/motorsim/internal/control"
	"github.com/san-kum/motorsim/internal/dynamo"
	"github.com/san-kum/motorsim/internal/integrators"
	"github.com/san-kum/motorsim/internal/motor"
	"github.com/san-kum/motorsim/internal/signals"
	"github.com/san-kum/motorsim/internal/sim"
)

type countMetric struct {
	count int
}

func (c *countMetric) Name() string { return "count" }

func (c *countMetric) Observe(dynamo.State, dynamo.Control, float64) { c.count++ }

func (c *countMetric) Value() float64 { return float64(c.count) }

func (c *countMetric) Reset() { c.count = 0 }

func newMotor() *motor.Motor {
	m, err := motor.New(motor.MaxonAMax32())
	Expect(err).NotTo(HaveOccurred())
	return m
}

func newPID(g control.Gains, freq, lo, hi float64, ref signals.Signal) *control.PID {
	pid, err := control.NewPID(g, freq, control.WithLimits(lo, hi), control.WithReference(ref))
	Expect(err).NotTo(HaveOccurred())
	return pid
}

func speedPID(ref signals.Signal) *control.PID {
	return newPID(control.Gains{Kp: 0.16, Ki: 4.44}, 1e3, -5, 5, ref)
}

func currentPID() *control.PID {
	return newPID(control.Gains{Kp: 1.85, Ki: 13280}, 1e4, 0, 24, nil)
}

var _ = Describe("Simulator", func() {
	var s *sim.Simulator

	BeforeEach(func() {
		s = sim.New(newMotor(), integrators.NewEuler())
	})

	Describe("open loop", func() {
		It("stays exactly at rest with zero input", func() {
			res, err := s.Run(sim.OpenLoop{Reference: signals.Constant(0)}, sim.Config{Dt: 1e-5, Duration: 0.01})
			Expect(err).NotTo(HaveOccurred())

			for j := range res.Trajectory.Time {
				Expect(res.Trajectory.Current[j]).To(BeZero())
				Expect(res.Trajectory.Speed[j]).To(BeZero())
			}
			Expect(res.Final).To(Equal(dynamo.State{0, 0}))
		})

		It("records the reference sampled at every micro-step", func() {
			ref := signals.Square(100, 12, 0, 0.5)
			res, err := s.Run(sim.OpenLoop{Reference: ref}, sim.Config{Dt: 1e-4, Duration: 0.05})
			Expect(err).NotTo(HaveOccurred())

			tr := res.Trajectory
			for j, t := range tr.Time {
				Expect(tr.Voltage[j]).To(Equal(ref(t)))
			}
			Expect(res.Trajectory.CurrentRef).To(BeNil())
		})

		It("approaches the no-load speed u/k", func() {
			p := motor.MaxonAMax32()
			res, err := s.Run(sim.OpenLoop{Reference: signals.Constant(12)}, sim.Config{Dt: 1e-5, Duration: 1.0})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Final[motor.Speed]).To(BeNumerically("~", 12/p.K, 0.01*12/p.K))
		})

		It("starts from the supplied initial state", func() {
			x0 := dynamo.State{0.5, 100}
			res, err := s.Run(sim.OpenLoop{Reference: signals.Constant(0), X0: x0}, sim.Config{Dt: 1e-5, Duration: 1e-3})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Trajectory.Current[0]).To(Equal(0.5))
			Expect(res.Trajectory.Speed[0]).To(Equal(100.0))
			Expect(x0).To(Equal(dynamo.State{0.5, 100}))
		})
	})

	Describe("trajectory layout", func() {
		DescribeTable("has round(D/dt) uniformly spaced samples",
			func(duration, dt float64, want int) {
				res, err := s.Run(sim.OpenLoop{Reference: signals.Constant(1)}, sim.Config{Dt: dt, Duration: duration})
				Expect(err).NotTo(HaveOccurred())

				tr := res.Trajectory
				Expect(tr.Len()).To(Equal(want))
				Expect(tr.Voltage).To(HaveLen(want))
				Expect(tr.Current).To(HaveLen(want))
				Expect(tr.Speed).To(HaveLen(want))

				for j, t := range tr.Time {
					Expect(t).To(Equal(float64(j) * dt))
					if j > 0 {
						Expect(t).To(BeNumerically(">", tr.Time[j-1]))
					}
				}
			},
			Entry("coarse", 1.0, 0.1, 10),
			Entry("fine", 0.05, 1e-5, 5000),
			Entry("inexact ratio", 0.0013, 1e-4, 13),
		)
	})

	Describe("closed loop", func() {
		It("holds the controller output for a whole sample period", func() {
			pid := newPID(control.Gains{Kp: 5, Ki: 0.5}, 1e3, 0, 24, signals.Square(50, 300, 0, 0.5))
			res, err := s.Run(sim.ClosedLoop{Controller: pid}, sim.Config{Dt: 1e-5, Duration: 0.05})
			Expect(err).NotTo(HaveOccurred())

			const n = 100
			u := res.Trajectory.Voltage
			changes := 0
			for j := 1; j < len(u); j++ {
				if u[j] != u[j-1] {
					Expect(j%n).To(BeZero(), "voltage changed inside a hold block at step %d", j)
					changes++
				}
			}
			Expect(changes).To(BeNumerically(">", 0))
		})

		It("tracks a speed step", func() {
			pid := newPID(control.Gains{Kp: 5, Ki: 0.5}, 1e5, 0, 24, signals.Step(150, 0))
			res, err := s.Run(sim.ClosedLoop{Controller: pid}, sim.Config{Dt: 1e-5, Duration: 1.0})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Final[motor.Speed]).To(BeNumerically("~", 149.5, 1.0))
			for _, v := range res.Trajectory.Voltage {
				Expect(v).To(BeNumerically(">=", 0))
				Expect(v).To(BeNumerically("<=", 24))
			}
		})

		It("resets the controller before each run", func() {
			pid := newPID(control.Gains{Kp: 5, Ki: 50}, 1e4, 0, 24, signals.Step(100, 0))
			cfg := sim.Config{Dt: 1e-5, Duration: 0.02}

			first, err := s.Run(sim.ClosedLoop{Controller: pid}, cfg)
			Expect(err).NotTo(HaveOccurred())
			second, err := s.Run(sim.ClosedLoop{Controller: pid}, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Trajectory).To(Equal(first.Trajectory))
		})
	})

	Describe("cascade", func() {
		It("matches two chained loops when both run at the micro-step rate", func() {
			const dt = 1e-5
			ref := signals.Step(150, 0.002)
			mk := func() (*control.PID, *control.PID) {
				return newPID(control.Gains{Kp: 0.16, Ki: 4.44}, 1/dt, -5, 5, ref),
					newPID(control.Gains{Kp: 1.85, Ki: 13280}, 1/dt, 0, 24, nil)
			}

			speed, current := mk()
			res, err := s.Run(sim.Cascade{Speed: speed, Current: current}, sim.Config{Dt: dt, Duration: 0.01})
			Expect(err).NotTo(HaveOccurred())

			m := newMotor()
			euler := integrators.NewEuler()
			speed, current = mk()
			x := dynamo.State{0, 0}
			for j := 0; j < res.Trajectory.Len(); j++ {
				t := float64(j) * dt
				iref := speed.Calculate(x[motor.Speed], t)
				u := current.CalculateWithSetpoint(iref, x[motor.Current], t)

				Expect(res.Trajectory.CurrentRef[j]).To(Equal(iref))
				Expect(res.Trajectory.Voltage[j]).To(Equal(u))
				Expect(res.Trajectory.Current[j]).To(Equal(x[motor.Current]))
				Expect(res.Trajectory.Speed[j]).To(Equal(x[motor.Speed]))

				x = euler.Step(m, x, dynamo.Control{u}, t, dt)
			}
			Expect(res.Final).To(Equal(x))
		})

		It("evaluates both loops on the first micro-step", func() {
			res, err := s.Run(sim.Cascade{Speed: speedPID(signals.Step(150, 0)), Current: currentPID()},
				sim.Config{Dt: 1e-6, Duration: 1e-4})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Trajectory.CurrentRef[0]).To(Equal(5.0))
			Expect(res.Trajectory.Voltage[0]).To(BeNumerically("~", 1.85*5+13280*5*1e-4, 1e-9))
		})

		It("holds each loop at its own rate", func() {
			res, err := s.Run(sim.Cascade{Speed: speedPID(signals.Square(200, 150, 0, 0.5)), Current: currentPID()},
				sim.Config{Dt: 1e-6, Duration: 0.01})
			Expect(err).NotTo(HaveOccurred())

			tr := res.Trajectory
			for j := 1; j < tr.Len(); j++ {
				if tr.CurrentRef[j] != tr.CurrentRef[j-1] {
					Expect(j % 1000).To(BeZero())
				}
				if tr.Voltage[j] != tr.Voltage[j-1] {
					Expect(j % 100).To(BeZero())
				}
			}
		})

		It("settles on the speed reference", func() {
			res, err := s.Run(sim.Cascade{Speed: speedPID(signals.Step(150, 0.1)), Current: currentPID()},
				sim.Config{Dt: 1e-6, Duration: 0.5})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Final[motor.Speed]).To(BeNumerically("~", 150, 1))
			for _, iref := range res.Trajectory.CurrentRef {
				Expect(math.Abs(iref)).To(BeNumerically("<=", 5))
			}
		})
	})

	Describe("metrics", func() {
		It("observes every micro-step", func() {
			c := &countMetric{}
			s.AddMetric(c)

			res, err := s.Run(sim.OpenLoop{Reference: signals.Constant(3)}, sim.Config{Dt: 1e-3, Duration: 0.25})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKeyWithValue("count", 250.0))
		})
	})

	Describe("configuration errors", func() {
		DescribeTable("rejects incomplete requests",
			func(build func() sim.Request) {
				_, err := s.Run(build(), sim.Config{Dt: 1e-5, Duration: 0.01})
				Expect(err).To(MatchError(dynamo.ErrMissingInput))
			},
			Entry("open loop without reference", func() sim.Request { return sim.OpenLoop{} }),
			Entry("closed loop without controller", func() sim.Request { return sim.ClosedLoop{} }),
			Entry("cascade without current loop", func() sim.Request {
				return sim.Cascade{Speed: speedPID(signals.Constant(1))}
			}),
			Entry("cascade without speed loop", func() sim.Request { return sim.Cascade{Current: currentPID()} }),
		)

		DescribeTable("rejects bad step settings",
			func(cfg sim.Config) {
				_, err := s.Run(sim.OpenLoop{Reference: signals.Constant(0)}, cfg)
				Expect(err).To(MatchError(dynamo.ErrParameterBounds))
			},
			Entry("zero dt", sim.Config{Dt: 0, Duration: 1}),
			Entry("negative dt", sim.Config{Dt: -0.1, Duration: 1}),
			Entry("zero duration", sim.Config{Dt: 0.1, Duration: 0}),
			Entry("negative duration", sim.Config{Dt: 0.1, Duration: -1}),
			Entry("shorter than a step", sim.Config{Dt: 0.1, Duration: 0.01}),
		)

		It("rejects an initial state of the wrong size", func() {
			_, err := s.Run(sim.OpenLoop{Reference: signals.Constant(0), X0: dynamo.State{1}}, sim.Config{Dt: 1e-3, Duration: 1})
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})

		It("rejects one controller used for both loops", func() {
			pid := currentPID()
			_, err := s.Run(sim.Cascade{Speed: pid, Current: pid}, sim.Config{Dt: 1e-3, Duration: 1})
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("scheduling", func() {
		DescribeTable("UpdateInterval",
			func(period, dt float64, want int) {
				Expect(sim.UpdateInterval(period, dt)).To(Equal(want))
			},
			Entry("exact multiple", 1e-3, 1e-5, 100),
			Entry("equal to dt", 1e-6, 1e-6, 1),
			Entry("rounded up", 2.6e-6, 1e-6, 3),
			Entry("rounded down", 1.4e-6, 1e-6, 1),
			Entry("faster than dt", 1e-7, 1e-6, 1),
		)

		It("warns when the period is not a multiple of dt", func() {
			core, logs := observer.New(zapcore.WarnLevel)
			s = sim.New(newMotor(), integrators.NewEuler(), sim.WithLogger(zap.New(core)))

			pid := newPID(control.Gains{Kp: 1}, 3e3, 0, 24, signals.Constant(10))
			_, err := s.Run(sim.ClosedLoop{Controller: pid}, sim.Config{Dt: 1e-4, Duration: 0.01})
			Expect(err).NotTo(HaveOccurred())

			Expect(logs.FilterMessageSnippet("not a multiple").Len()).To(Equal(1))
		})
	})
})
