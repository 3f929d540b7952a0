package operator_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reckon/pkg/budget"
	"github.com/papercomputeco/reckon/pkg/operator"
	"github.com/papercomputeco/reckon/pkg/term"
)

type fakeHost struct {
	busy, happy float64
	activated   []string
}

func (h *fakeHost) Time() int64     { return 0 }
func (h *fakeHost) Busy() float64   { return h.busy }
func (h *fakeHost) Happy() float64  { return h.happy }
func (h *fakeHost) Activate(t term.Term, _ budget.Budget) bool {
	h.activated = append(h.activated, t.Name())
	return true
}

var _ = Describe("Registry", func() {
	var r *operator.Registry

	BeforeEach(func() {
		r = operator.NewRegistry()
		Expect(operator.RegisterBuiltins(r)).To(Succeed())
	})

	It("lists the built-ins", func() {
		Expect(r.Names()).To(Equal([]string{"^feelBusy", "^feelHappy", "^hesitate"}))
	})

	It("resolves unknown names to not found", func() {
		op, ok := r.Lookup("^fly")
		Expect(ok).To(BeFalse())
		Expect(op).To(BeNil())
	})

	It("rejects malformed operators", func() {
		Expect(r.Register(&operator.Operator{Name: "noCaret", Exec: operator.FeelBusy().Exec})).
			To(MatchError(operator.ErrInvalidOperator))
		Expect(r.Register(&operator.Operator{Name: "^noExec"})).
			To(MatchError(operator.ErrInvalidOperator))
		Expect(r.Register(nil)).To(MatchError(operator.ErrInvalidOperator))
	})

	It("removes operators", func() {
		Expect(r.Remove("^hesitate")).To(BeTrue())
		Expect(r.Remove("^hesitate")).To(BeFalse())
		_, ok := r.Lookup("^hesitate")
		Expect(ok).To(BeFalse())
	})

	It("tags capabilities", func() {
		op, _ := r.Lookup("^feelBusy")
		Expect(op.Caps.Has(operator.Feeling)).To(BeTrue())
		Expect(op.Caps.Has(operator.External)).To(BeFalse())
		Expect(op.String()).To(Equal("^feelBusy[mental|feeling]"))
	})
})

var _ = Describe("built-in operators", func() {
	var h *fakeHost

	BeforeEach(func() {
		h = &fakeHost{busy: 0.3, happy: 0.7}
	})

	It("reports the busy level", func() {
		fb, err := operator.FeelBusy().Exec(context.Background(), h, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fb).To(HaveLen(1))
		Expect(fb[0].Term.Name()).To(Equal("<SELF --> ([],busy)>"))
		Expect(fb[0].Truth.Frequency).To(Equal(0.3))
	})

	It("reports the happy level", func() {
		fb, err := operator.FeelHappy().Exec(context.Background(), h, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fb[0].Truth.Frequency).To(Equal(0.7))
	})

	It("activates the concepts of its arguments", func() {
		_, err := operator.Hesitate().Exec(context.Background(), h, []term.Term{term.Atom("bird")})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.activated).To(Equal([]string{"bird"}))
	})
})
