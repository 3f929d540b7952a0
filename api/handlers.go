package api

import (
	"bytes"
	"cmp"
	"errors"
	"io"
	"slices"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/concept"
	"github.com/papercomputeco/reckon/pkg/input"
	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/runner"
)

// ConceptSummary describes one concept in a listing.
type ConceptSummary struct {
	Term       string  `json:"term"`
	Priority   float64 `json:"priority"`
	Durability float64 `json:"durability"`
	Quality    float64 `json:"quality"`
	Created    int64   `json:"created"`
	TaskLinks  int     `json:"task_links"`
	TermLinks  int     `json:"term_links"`
}

// ConceptDetail is a concept with the tasks and terms it links to.
type ConceptDetail struct {
	ConceptSummary
	Tasks []input.Record `json:"tasks"`
	Terms []string       `json:"terms"`
}

// InputResponse reports what POST /v1/input queued.
type InputResponse struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Pending  int `json:"pending"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus returns the memory's counters.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	var stats memory.Stats
	err := s.inspector.Inspect(c.UserContext(), func(m *memory.Memory) {
		stats = m.Stats()
	})
	if err != nil {
		return s.inspectError(c, err)
	}
	return c.JSON(stats)
}

// handleListConcepts returns the highest priority concepts.
// Query parameters:
//   - limit (optional): number of concepts to return
func (s *Server) handleListConcepts(c *fiber.Ctx) error {
	limit := s.config.ConceptLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	var concepts []ConceptSummary
	err := s.inspector.Inspect(c.UserContext(), func(m *memory.Memory) {
		for cpt := range m.Attention().All() {
			concepts = append(concepts, summarize(cpt))
		}
	})
	if err != nil {
		return s.inspectError(c, err)
	}

	slices.SortFunc(concepts, func(a, b ConceptSummary) int {
		if n := cmp.Compare(b.Priority, a.Priority); n != 0 {
			return n
		}
		return cmp.Compare(a.Term, b.Term)
	})
	total := len(concepts)
	if len(concepts) > limit {
		concepts = concepts[:limit]
	}

	return c.JSON(map[string]any{
		"count":    total,
		"concepts": concepts,
	})
}

// handleGetConcept returns one concept with its links.
func (s *Server) handleGetConcept(c *fiber.Ctx) error {
	name := c.Params("term")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "term parameter required"})
	}

	var (
		detail *ConceptDetail
		found  bool
	)
	err := s.inspector.Inspect(c.UserContext(), func(m *memory.Memory) {
		for cpt := range m.Attention().All() {
			if cpt.Key() != name {
				continue
			}
			found = true
			detail = &ConceptDetail{ConceptSummary: summarize(cpt), Tasks: []input.Record{}, Terms: []string{}}
			for l := range cpt.TaskLinks().All() {
				if t, ok := m.Task(l.Target()); ok {
					detail.Tasks = append(detail.Tasks, input.FromTask(t))
				}
			}
			for l := range cpt.TermLinks().All() {
				detail.Terms = append(detail.Terms, l.Key())
			}
			return
		}
	})
	if err != nil {
		return s.inspectError(c, err)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "concept not found"})
	}
	slices.Sort(detail.Terms)
	return c.JSON(detail)
}

// handleInput queues the JSONL records in the request body.
func (s *Server) handleInput(c *fiber.Ctx) error {
	if s.inputs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "input is not configured",
		})
	}

	reader := input.NewReader(bytes.NewReader(c.Body()), s.logger)
	resp := InputResponse{}
	for {
		item, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		if err := s.inputs.Push(item); err != nil {
			s.logger.Warn("rejecting input", zap.Error(err))
			resp.Skipped = reader.Skipped()
			resp.Pending = s.inputs.Pending()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp.Accepted++
	}
	resp.Skipped = reader.Skipped()
	resp.Pending = s.inputs.Pending()

	if resp.Accepted == 0 && resp.Skipped > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "no valid input records"})
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// handleListJournal returns journal entries.
// Query parameters:
//   - kind, subject, reason (optional): exact match filters
//   - after (optional): only entries with a larger ID
//   - limit (optional): number of entries to return
func (s *Server) handleListJournal(c *fiber.Ctx) error {
	if s.config.Journal == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "journal is not configured",
		})
	}

	f := journal.Filter{
		Kind:    c.Query("kind"),
		Subject: c.Query("subject"),
		Reason:  c.Query("reason"),
	}
	var err error
	if f.AfterID, err = queryInt64(c, "after"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "after must be an integer"})
	}
	limit, err := queryInt64(c, "limit")
	if err != nil || limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
	}
	f.Limit = int(limit)

	entries, err := s.config.Journal.List(c.UserContext(), f)
	if err != nil {
		s.logger.Error("listing journal", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list journal"})
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}

	return c.JSON(map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// handleGetJournalEntry returns one journal entry by ID.
func (s *Server) handleGetJournalEntry(c *fiber.Ctx) error {
	if s.config.Journal == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "journal is not configured",
		})
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id must be an integer"})
	}

	entry, err := s.config.Journal.Get(c.UserContext(), id)
	if err != nil {
		var notFound journal.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "entry not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get entry"})
	}
	return c.JSON(entry)
}

func (s *Server) inspectError(c *fiber.Ctx, err error) error {
	if errors.Is(err, runner.ErrNotRunning) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory is not running"})
	}
	s.logger.Error("inspecting memory", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to inspect memory"})
}

func summarize(c *concept.Concept) ConceptSummary {
	b := c.Budget()
	return ConceptSummary{
		Term:       c.Key(),
		Priority:   b.Priority(),
		Durability: b.Durability(),
		Quality:    b.Quality(),
		Created:    c.Created(),
		TaskLinks:  c.TaskLinks().Size(),
		TermLinks:  c.TermLinks().Size(),
	}
}

func queryInt64(c *fiber.Ctx, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
