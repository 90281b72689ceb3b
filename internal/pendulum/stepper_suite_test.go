package pendulum_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dpend/internal/pendulum"
)

var _ = Describe("Stepper", func() {
	var (
		st *pendulum.Stepper
		x0 pendulum.State
	)

	BeforeEach(func() {
		st = pendulum.NewStepper(pendulum.NewConstants(9.81, 3.7), pendulum.DefaultDamping)
		x0 = pendulum.State{Phi: 2.7, Psi: 2.2}
	})

	It("keeps the angles on the first step from rest", func() {
		x := st.Step(x0, 0.01)
		Expect(x.Phi).To(Equal(2.7))
		Expect(x.Psi).To(Equal(2.2))
	})

	It("scales the first velocity update by dt and damping", func() {
		a := pendulum.Accelerations(x0, st.Constants.Ratio())
		x := st.Step(x0, 0.01)
		Expect(x.PhiDot).To(Equal(a.Phi * 0.01 * 0.9995))
		Expect(x.PsiDot).To(Equal(a.Psi * 0.01 * 0.9995))
	})

	It("returns a fresh value and leaves the input untouched", func() {
		before := x0
		_ = st.Step(x0, 0.5)
		Expect(x0).To(Equal(before))
	})

	DescribeTable("stays finite for irregular dt",
		func(dt float64) {
			x := x0
			for i := 0; i < 500; i++ {
				x = st.Step(x, dt)
			}
			Expect(x.IsFinite()).To(BeTrue())
		},
		Entry("fast ticks", 0.001),
		Entry("frame rate", 0.016),
		Entry("slow ticks", 0.03),
	)

	Context("without damping", func() {
		BeforeEach(func() {
			st.Damping = pendulum.NoDamping
		})

		It("is the identity for dt = 0", func() {
			x := pendulum.State{Phi: 1, Psi: -2, PhiDot: 0.25, PsiDot: 3}
			Expect(st.Step(x, 0)).To(Equal(x))
		})
	})

	Context("with damping and no forcing", func() {
		It("shrinks velocities geometrically", func() {
			x := pendulum.State{PhiDot: 1}
			for i := 1; i <= 10; i++ {
				x = st.Step(x, 0)
				Expect(x.PhiDot).To(BeNumerically("~", math.Pow(0.9995, float64(i)), 1e-12))
			}
		})
	})
})
