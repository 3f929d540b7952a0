package testutils

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reckon/pkg/journal"
)

// ErrMockJournal is returned by MockJournalDriver when told to fail.
var ErrMockJournal = errors.New("mock journal failure")

// MockJournalDriver records entries in memory and can be told to fail.
type MockJournalDriver struct {
	mu      sync.Mutex
	entries []*journal.Entry

	// FailRecord causes Record to return ErrMockJournal.
	FailRecord bool
}

// NewMockJournalDriver creates a new mock journal driver.
func NewMockJournalDriver() *MockJournalDriver {
	return &MockJournalDriver{}
}

func (m *MockJournalDriver) Record(_ context.Context, entries ...*journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecord {
		return ErrMockJournal
	}
	for _, e := range entries {
		e.ID = int64(len(m.entries) + 1)
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *MockJournalDriver) Get(_ context.Context, id int64) (*journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > int64(len(m.entries)) {
		return nil, journal.NotFoundError{ID: id}
	}
	return m.entries[id-1], nil
}

func (m *MockJournalDriver) List(_ context.Context, f journal.Filter) ([]*journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*journal.Entry
	for _, e := range m.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockJournalDriver) Count(ctx context.Context, f journal.Filter) (int, error) {
	l, err := m.List(ctx, f)
	return len(l), err
}

func (m *MockJournalDriver) Close() error { return nil }

// Entries returns everything recorded so far.
func (m *MockJournalDriver) Entries() []*journal.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*journal.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// DescribeJournalDriver registers the behavior every journal.Driver must
// have. newDriver is called before each test; the driver is closed after.
func DescribeJournalDriver(newDriver func() journal.Driver) {
	var (
		d   journal.Driver
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		d = newDriver()
	})

	AfterEach(func() {
		if d != nil {
			Expect(d.Close()).To(Succeed())
			d = nil
		}
	})

	entry := func(kind, subject, reason string) *journal.Entry {
		return &journal.Entry{Kind: kind, Subject: subject, Reason: reason, Priority: 0.5, Time: 3, Cycle: 4}
	}

	It("assigns increasing IDs", func() {
		a, b := entry("task_add", "a.", "Perceived"), entry("task_add", "b.", "Perceived")
		Expect(d.Record(ctx, a, b)).To(Succeed())
		Expect(a.ID).To(BeNumerically(">", 0))
		Expect(b.ID).To(BeNumerically(">", a.ID))
	})

	It("gets entries back by ID", func() {
		a := entry("concept_new", "bird", "")
		Expect(d.Record(ctx, a)).To(Succeed())

		got, err := d.Get(ctx, a.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Kind).To(Equal("concept_new"))
		Expect(got.Subject).To(Equal("bird"))
		Expect(got.Priority).To(Equal(0.5))
		Expect(got.Time).To(Equal(int64(3)))
		Expect(got.Cycle).To(Equal(int64(4)))
		Expect(got.Recorded).NotTo(BeZero())
	})

	It("reports missing entries", func() {
		_, err := d.Get(ctx, 9999)
		var nf journal.NotFoundError
		Expect(errors.As(err, &nf)).To(BeTrue())
		Expect(nf.ID).To(Equal(int64(9999)))
	})

	It("filters, orders and limits", func() {
		Expect(d.Record(ctx,
			entry("task_add", "a.", "Perceived"),
			entry("task_remove", "a.", "Completed"),
			entry("task_add", "b.", "Perceived"),
			entry("task_remove", "c.", "Neglected"),
		)).To(Succeed())

		adds, err := d.List(ctx, journal.Filter{Kind: "task_add"})
		Expect(err).NotTo(HaveOccurred())
		Expect(adds).To(HaveLen(2))
		Expect(adds[0].Subject).To(Equal("a."))
		Expect(adds[1].Subject).To(Equal("b."))

		aboutA, err := d.List(ctx, journal.Filter{Subject: "a."})
		Expect(err).NotTo(HaveOccurred())
		Expect(aboutA).To(HaveLen(2))

		first, err := d.List(ctx, journal.Filter{Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(1))

		after, err := d.List(ctx, journal.Filter{AfterID: first[0].ID})
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(HaveLen(3))

		n, err := d.Count(ctx, journal.Filter{Reason: "Neglected"})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		n, err = d.Count(ctx, journal.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
	})
}
