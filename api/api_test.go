package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reckon/pkg/input"
	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/journal/inmemory"
	reckonlogger "github.com/papercomputeco/reckon/pkg/logger"
	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/runner"
	"github.com/papercomputeco/reckon/pkg/sense"
	"github.com/papercomputeco/reckon/pkg/sse"
)

// directInspector runs inspections inline, for tests that drive cycles
// themselves.
type directInspector struct {
	mem *memory.Memory
}

func (d directInspector) Inspect(_ context.Context, fn func(*memory.Memory)) error {
	fn(d.mem)
	return nil
}

func doRequest(server *Server, method, target, body string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	Expect(err).NotTo(HaveOccurred())

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, data
}

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		mem    *memory.Memory
		queue  *input.Queue
		server *Server
		config Config
	)

	feed := func(lines ...string) {
		for _, line := range lines {
			item, err := input.Decode([]byte(line))
			Expect(err).NotTo(HaveOccurred())
			mem.InputTask(ctx, item)
		}
		mem.Cycle(ctx, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		config = Config{ListenAddr: ":0"}

		var err error
		mem, err = memory.New(&memory.Config{Params: memory.DefaultParams()})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mem.Close)

		queue = input.NewQueue(2)
	})

	JustBeforeEach(func() {
		var err error
		server, err = NewServer(config, directInspector{mem: mem}, queue, reckonlogger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an inspector", func() {
		_, err := NewServer(Config{}, nil, queue, nil)
		Expect(err).To(MatchError(ErrNoInspector))
	})

	It("answers ping", func() {
		resp, body := doRequest(server, http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("GET /v1/status", func() {
		It("returns the memory stats", func() {
			feed(`{"term":"bird","punctuation":"."}`)

			resp, body := doRequest(server, http.MethodGet, "/v1/status", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var stats memory.Stats
			Expect(json.Unmarshal(body, &stats)).To(Succeed())
			Expect(stats.Cycles).To(Equal(int64(1)))
			Expect(stats.Concepts).To(Equal(1))
			Expect(stats.Enabled).To(BeTrue())
		})

		It("returns 503 when the runner is idle", func() {
			r, err := runner.New(&runner.Config{Memory: mem})
			Expect(err).NotTo(HaveOccurred())
			idle, err := NewServer(Config{}, r, queue, reckonlogger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp, body := doRequest(idle, http.MethodGet, "/v1/status", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			Expect(string(body)).To(ContainSubstring("not running"))
		})

		It("inspects through a started runner", func() {
			r, err := runner.New(&runner.Config{Memory: mem, FrameInterval: time.Millisecond})
			Expect(err).NotTo(HaveOccurred())

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- r.Start(runCtx) }()
			DeferCleanup(func() {
				cancel()
				Eventually(done).Should(Receive())
			})

			live, err := NewServer(Config{}, r, queue, reckonlogger.Nop())
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int {
				resp, _ := doRequest(live, http.MethodGet, "/v1/status", "")
				return resp.StatusCode
			}).Should(Equal(fiber.StatusOK))
		})
	})

	Describe("GET /v1/concepts", func() {
		BeforeEach(func() {
			config.ConceptLimit = 2
		})

		JustBeforeEach(func() {
			feed(
				`{"term":"low","punctuation":".","priority":0.2}`,
				`{"term":"high","punctuation":".","priority":0.9}`,
				`{"term":"mid","punctuation":".","priority":0.5}`,
			)
		})

		It("lists concepts by priority up to the default limit", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/concepts", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out struct {
				Count    int              `json:"count"`
				Concepts []ConceptSummary `json:"concepts"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(3))
			Expect(out.Concepts).To(HaveLen(2))
			Expect(out.Concepts[0].Term).To(Equal("high"))
			Expect(out.Concepts[0].Priority).To(BeNumerically(">=", out.Concepts[1].Priority))
			Expect(out.Concepts[0].TaskLinks).To(Equal(1))
		})

		It("honours an explicit limit", func() {
			_, body := doRequest(server, http.MethodGet, "/v1/concepts?limit=1", "")
			Expect(string(body)).To(ContainSubstring(`"count":3`))
			Expect(strings.Count(string(body), `"term"`)).To(Equal(1))
		})

		It("rejects a bad limit", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/concepts?limit=-1", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("limit must be a positive integer"))
		})

		It("returns one concept with its tasks", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/concepts/mid", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var detail ConceptDetail
			Expect(json.Unmarshal(body, &detail)).To(Succeed())
			Expect(detail.Term).To(Equal("mid"))
			Expect(detail.Tasks).To(HaveLen(1))
			Expect(detail.Tasks[0].Term.Name()).To(Equal("mid"))
			Expect(*detail.Tasks[0].Priority).To(BeNumerically("~", 0.5, 1e-9))
			Expect(detail.Terms).To(BeEmpty())
		})

		It("returns 404 for unknown concepts", func() {
			resp, _ := doRequest(server, http.MethodGet, "/v1/concepts/nothing", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("POST /v1/input", func() {
		It("queues well-formed lines and counts the rest", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/input",
				"{\"term\":\"bird\",\"punctuation\":\".\"}\nnot json\n")
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))

			var out InputResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out).To(Equal(InputResponse{Accepted: 1, Skipped: 1, Pending: 1}))
			Expect(queue.Pending()).To(Equal(1))
		})

		It("rejects a body with nothing usable", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/input", "nope\n")
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(queue.Pending()).To(BeZero())
		})

		It("returns 503 once the queue is full", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/input", strings.Join([]string{
				`{"term":"a","punctuation":"."}`,
				`{"term":"b","punctuation":"."}`,
				`{"term":"c","punctuation":"."}`,
			}, "\n"))
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))

			var out InputResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Pending).To(Equal(2))
		})

		It("accepts commands", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/input", `{"command":"volume","volume":10}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusAccepted))

			mem.Cycle(ctx, queue)
			Expect(mem.Volume()).To(Equal(10))
		})

		Context("without an input queue", func() {
			It("returns 503", func() {
				noInput, err := NewServer(Config{}, directInspector{mem: mem}, nil, reckonlogger.Nop())
				Expect(err).NotTo(HaveOccurred())

				resp, _ := doRequest(noInput, http.MethodPost, "/v1/input", `{"term":"a","punctuation":"."}`)
				Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			})
		})
	})

	Describe("GET /v1/journal", func() {
		Context("when the journal is not configured", func() {
			It("returns 503", func() {
				resp, _ := doRequest(server, http.MethodGet, "/v1/journal", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			})
		})

		Context("with a journal", func() {
			var driver *inmemory.Driver

			BeforeEach(func() {
				driver = inmemory.NewDriver()
				Expect(driver.Record(ctx,
					&journal.Entry{Kind: "task_add", Subject: "bird.", Reason: "Perceived"},
					&journal.Entry{Kind: "concept_new", Subject: "bird"},
					&journal.Entry{Kind: "task_add", Subject: "fish.", Reason: "Perceived"},
				)).To(Succeed())
				config.Journal = driver
			})

			It("lists entries matching the filter", func() {
				resp, body := doRequest(server, http.MethodGet, "/v1/journal?kind=task_add&limit=1", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var out struct {
					Count   int              `json:"count"`
					Entries []*journal.Entry `json:"entries"`
				}
				Expect(json.Unmarshal(body, &out)).To(Succeed())
				Expect(out.Count).To(Equal(1))
				Expect(out.Entries[0].Subject).To(Equal("bird."))
			})

			It("pages with after", func() {
				_, body := doRequest(server, http.MethodGet, "/v1/journal?after=2", "")
				Expect(string(body)).To(ContainSubstring("fish."))
				Expect(string(body)).NotTo(ContainSubstring(`"bird."`))
			})

			It("rejects malformed paging", func() {
				resp, _ := doRequest(server, http.MethodGet, "/v1/journal?after=x", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})

			It("gets one entry", func() {
				resp, body := doRequest(server, http.MethodGet, "/v1/journal/2", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(string(body)).To(ContainSubstring("concept_new"))
			})

			It("returns 404 for a missing entry", func() {
				resp, _ := doRequest(server, http.MethodGet, "/v1/journal/99", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
			})

			It("returns 400 for a bad id", func() {
				resp, _ := doRequest(server, http.MethodGet, "/v1/journal/abc", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})
		})
	})

	Describe("GET /metrics", func() {
		It("is absent without a metrics handler", func() {
			resp, _ := doRequest(server, http.MethodGet, "/metrics", "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		Context("with sense metrics", func() {
			BeforeEach(func() {
				s, err := sense.New(&sense.Config{Emitter: mem.Events(), Source: mem})
				Expect(err).NotTo(HaveOccurred())
				DeferCleanup(s.Close)
				config.Metrics = s.Handler()
			})

			It("serves the registry", func() {
				mem.Cycle(ctx, nil)

				resp, body := doRequest(server, http.MethodGet, "/metrics", "")
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(string(body)).To(ContainSubstring("reckon_cycles_total 1"))
			})
		})
	})
})

var _ = Describe("Event stream", func() {
	It("is unavailable without a broker", func() {
		server, err := NewServer(Config{}, directInspector{}, nil, reckonlogger.Nop())
		Expect(err).NotTo(HaveOccurred())

		resp, _ := doRequest(server, http.MethodGet, "/v1/events", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
	})

	It("streams published events until the broker closes", func() {
		broker := sse.NewBroker(0)
		server, err := NewServer(Config{Events: broker}, directInspector{}, nil, reckonlogger.Nop())
		Expect(err).NotTo(HaveOccurred())

		type result struct {
			resp *http.Response
			err  error
		}
		done := make(chan result, 1)
		go func() {
			defer GinkgoRecover()
			req, err := http.NewRequest(http.MethodGet, "/v1/events", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := server.app.Test(req, -1)
			done <- result{resp: resp, err: err}
		}()

		Eventually(broker.Subscribers).Should(Equal(1))
		broker.Publish(sse.Event{Type: "reckon.concept.created", ID: "1", Data: `{"term":"bird"}`})
		broker.Publish(sse.Event{Type: "reckon.output", ID: "2", Data: `{"term":"robin"}`})
		broker.Close()

		var res result
		Eventually(done, 5*time.Second).Should(Receive(&res))
		Expect(res.err).NotTo(HaveOccurred())
		Expect(res.resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

		r := sse.NewReader(res.resp.Body)
		first, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Type).To(Equal("reckon.concept.created"))
		second, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).To(Equal("2"))
	})
})
