package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amai-lab/linkgraph/internal/llm"
	"github.com/amai-lab/linkgraph/internal/store"
)

// SummaryBatchSize is how many posts share one LLM call
const SummaryBatchSize = 5

// maxSummaryChars caps the content sent per post; the tail is rarely
// needed for a 1-2 sentence summary
const maxSummaryChars = 2000

const summarySystemPrompt = `You extract structured metadata from LinkedIn posts. For each post provide:
- summary: 1-2 sentence summary
- topics: list of main topics/themes (e.g. ["AI", "careers"])
- technologies: tools, frameworks, languages mentioned (e.g. ["Python", "PyTorch"])
- people: named people or roles mentioned (e.g. ["Jane Doe", "CTO"])
- category: one of product_announcement, paper, experiment, job_news, opinion, tutorial, other.

Example categories you can pick from: product_announcement (new lib/product), paper (academic/research),
  experiment (trial/benchmark), job_news (hiring/career), opinion (hot take),
  tutorial (how-to), other.
Use empty arrays [] for topics/technologies/people when none apply.
Output valid JSON only. Format: {"posts": [{"urn": "...", "summary": "...",
  "topics": [], "technologies": [], "people": [], "category": "..."}]}`

const summaryUserPromptTemplate = `For each post below: write a 1-2 sentence summary and fill in
topics, technologies, people, and category as relevant. Output JSON only.

---
%s
---
`

// PostSummary is the structured metadata extracted for one post
type PostSummary struct {
	URN          string   `json:"urn"`
	Summary      string   `json:"summary"`
	Topics       []string `json:"topics"`
	Technologies []string `json:"technologies"`
	People       []string `json:"people"`
	Category     string   `json:"category"`
}

type pendingPost struct {
	URN     string
	Content string
}

// Summarizer fills summary metadata for stored posts that lack it
type Summarizer struct {
	store     *store.ContentStore
	llm       *llm.Client
	batchSize int
	runID     string
	logger    *slog.Logger
}

// NewSummarizer creates a summarizer; runID is stamped on every sidecar
// it updates
func NewSummarizer(contentStore *store.ContentStore, llmClient *llm.Client, batchSize int, runID string) *Summarizer {
	if batchSize <= 0 {
		batchSize = SummaryBatchSize
	}
	return &Summarizer{
		store:     contentStore,
		llm:       llmClient,
		batchSize: batchSize,
		runID:     runID,
		logger:    slog.Default().With("component", "summarize", "run_id", runID),
	}
}

// SummarizeAll processes every stored post without a summary, batching
// LLM calls. Returns the number of sidecars updated; a failed batch is
// logged and skipped, not fatal.
func (s *Summarizer) SummarizeAll(ctx context.Context, limit int) (int, error) {
	pending, err := s.loadPending(limit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		s.logger.Info("no posts needing summary")
		return 0, nil
	}
	s.logger.Info("summarizing posts", "count", len(pending), "batch_size", s.batchSize)

	total := 0
	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		n, err := s.summarizeBatch(ctx, pending[start:end])
		if err != nil {
			s.logger.Warn("batch failed", "start", start, "error", err)
			continue
		}
		total += n
	}
	if total == 0 {
		s.logger.Warn("no posts were summarized; check the LLM model and API key")
	}
	return total, nil
}

func (s *Summarizer) loadPending(limit int) ([]pendingPost, error) {
	metas, err := s.store.NeedingSummary(limit)
	if err != nil {
		return nil, err
	}
	pending := make([]pendingPost, 0, len(metas))
	for _, meta := range metas {
		content, err := s.store.Load(meta.URN)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		pending = append(pending, pendingPost{URN: meta.URN, Content: content})
	}
	return pending, nil
}

func (s *Summarizer) summarizeBatch(ctx context.Context, batch []pendingPost) (int, error) {
	urns := make([]string, len(batch))
	for i, p := range batch {
		urns[i] = p.URN
	}

	userPrompt := fmt.Sprintf(summaryUserPromptTemplate, buildPromptBatch(batch))
	raw, err := s.llm.CompleteJSON(ctx, summarySystemPrompt, userPrompt)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, ps := range parseSummaries(raw, urns) {
		if ps.URN == "" {
			continue
		}
		meta, err := s.store.LoadMeta(ps.URN)
		if err != nil {
			s.logger.Warn("loading sidecar failed", "urn", ps.URN, "error", err)
			continue
		}
		meta.Summary = ps.Summary
		meta.Topics = ps.Topics
		meta.Technologies = ps.Technologies
		meta.People = ps.People
		meta.Category = ps.Category
		meta.RunID = s.runID
		meta.SummarizedAt = time.Now().UTC().Format(time.RFC3339)
		if err := s.store.SaveMeta(meta); err != nil {
			s.logger.Warn("saving sidecar failed", "urn", ps.URN, "error", err)
			continue
		}
		updated++
	}
	return updated, nil
}

// buildPromptBatch renders posts for the prompt, numbered from 1
func buildPromptBatch(batch []pendingPost) string {
	parts := make([]string, 0, len(batch))
	for i, p := range batch {
		parts = append(parts, fmt.Sprintf("[Post %d]\nURN: %s\nContent:\n%s\n",
			i+1, p.URN, truncateContent(p.Content, maxSummaryChars)))
	}
	return strings.Join(parts, "\n")
}

func truncateContent(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "\n...[truncated]"
}

// parseSummaries extracts post summaries from LLM output. The model is
// asked for {"posts": [...]} but a bare array is accepted; entries past
// the requested posts are dropped and a missing urn falls back to the
// batch position.
func parseSummaries(text string, urns []string) []PostSummary {
	var posts []PostSummary
	if block, ok := llm.ExtractJSONBlock(text); ok {
		var wrapper struct {
			Posts []PostSummary `json:"posts"`
		}
		if err := json.Unmarshal([]byte(block), &wrapper); err == nil && wrapper.Posts != nil {
			posts = wrapper.Posts
		}
	}
	if posts == nil {
		// some models return the array without the wrapper object
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil
		}
		var list []PostSummary
		if err := json.Unmarshal([]byte(text[start:end+1]), &list); err != nil {
			return nil
		}
		posts = list
	}

	if len(posts) > len(urns) {
		posts = posts[:len(urns)]
	}
	out := make([]PostSummary, 0, len(posts))
	for i, p := range posts {
		if p.URN == "" && i < len(urns) {
			p.URN = urns[i]
		}
		p.Summary = strings.TrimSpace(p.Summary)
		p.Topics = cleanList(p.Topics)
		p.Technologies = cleanList(p.Technologies)
		p.People = cleanList(p.People)
		p.Category = strings.TrimSpace(p.Category)
		out = append(out, p)
	}
	return out
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
