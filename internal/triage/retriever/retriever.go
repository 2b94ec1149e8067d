// internal/triage/retriever/retriever.go
package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
)

// Config tunes knowledge-base retrieval.
type Config struct {
	Index    string
	TopK     int
	MinScore float64
	// MaxQueries bounds how many focused questions are derived per message.
	MaxQueries int
}

// Retriever answers question-like messages from the pre-built knowledge-base
// index. A missing or empty index yields an empty passage set, never an
// error; synthesis treats "no grounding available" as a normal case.
type Retriever struct {
	config    Config
	client    *elasticsearch.Client
	completer genai.Completer
	logger    logger.Logger
}

func New(config Config, client *elasticsearch.Client, completer genai.Completer, log logger.Logger) *Retriever {
	if config.MaxQueries == 0 {
		config.MaxQueries = 3
	}
	return &Retriever{
		config:    config,
		client:    client,
		completer: completer,
		logger:    log.With(map[string]interface{}{"component": "retriever"}),
	}
}

// Retrieve runs a single query and returns passages ordered by descending
// relevance, excluding anything under MinScore.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]models.RetrievedPassage, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	body := map[string]interface{}{
		"size":      topK,
		"min_score": r.config.MinScore,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
	}
	payload, _ := json.Marshal(body)

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.config.Index),
		r.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// A knowledge base that was never indexed behaves like an empty one.
		if res.StatusCode == http.StatusNotFound {
			r.logger.Warn("knowledge-base index missing, returning no passages", map[string]interface{}{
				"index": r.config.Index,
			})
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSearchQueryFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Title   string `json:"title"`
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrSearchQueryFailed, err)
	}

	passages := make([]models.RetrievedPassage, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.Score < r.config.MinScore {
			continue
		}
		text := hit.Source.Content
		if hit.Source.Title != "" {
			text = hit.Source.Title + "\n" + text
		}
		passages = append(passages, models.RetrievedPassage{
			DocumentID: hit.ID,
			Text:       text,
			Score:      hit.Score,
		})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages, nil
}

// RetrieveForMessage derives focused questions from the message and merges
// the passages each one finds, deduplicated by document, best score wins.
func (r *Retriever) RetrieveForMessage(ctx context.Context, msg models.InboundMessage) ([]models.RetrievedPassage, error) {
	queries := r.buildQueries(ctx, msg)

	seen := make(map[string]models.RetrievedPassage)
	for _, q := range queries {
		passages, err := r.Retrieve(ctx, q, r.config.TopK)
		if err != nil {
			return nil, err
		}
		for _, p := range passages {
			if prev, ok := seen[p.DocumentID]; !ok || p.Score > prev.Score {
				seen[p.DocumentID] = p
			}
		}
	}

	merged := make([]models.RetrievedPassage, 0, len(seen))
	for _, p := range seen {
		merged = append(merged, p)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > r.config.TopK {
		merged = merged[:r.config.TopK]
	}
	return merged, nil
}

// buildQueries asks the completion service for up to MaxQueries focused
// questions capturing the customer's intent. Any failure degrades to the
// raw message text as the single query.
func (r *Retriever) buildQueries(ctx context.Context, msg models.InboundMessage) []string {
	raw, err := r.completer.Complete(ctx, buildQueryPrompt(msg, r.config.MaxQueries), genai.Options{
		MaxTokens:   256,
		Temperature: 0.0,
	})
	if err != nil {
		r.logger.Warn("query construction failed, using message text", map[string]interface{}{
			"messageId": msg.ID,
			"error":     err.Error(),
		})
		return []string{msg.Text()}
	}

	queries := parseQueries(raw, r.config.MaxQueries)
	if len(queries) == 0 {
		return []string{msg.Text()}
	}
	return queries
}

func parseQueries(raw string, max int) []string {
	if doc, ok := genai.ExtractJSON(raw); ok {
		var out struct {
			Queries []string `json:"queries"`
		}
		if json.Unmarshal([]byte(doc), &out) == nil && len(out.Queries) > 0 {
			if len(out.Queries) > max {
				out.Queries = out.Queries[:max]
			}
			return out.Queries
		}
	}

	// Fall back to line-per-question output.
	var queries []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == max {
			break
		}
	}
	return queries
}

func buildQueryPrompt(msg models.InboundMessage, max int) string {
	var parts []string

	parts = append(parts, "You analyze customer emails to construct knowledge-base search queries.")
	parts = append(parts, fmt.Sprintf("\nRead the email and produce up to %d concise questions that capture the customer's intent.", max))
	parts = append(parts, "Include only relevant questions; one is enough when it covers the request.")
	parts = append(parts, fmt.Sprintf("\nEmail:\n%s", msg.Text()))
	parts = append(parts, "\nRespond with JSON only: {\"queries\": [\"...\"]}")

	return strings.Join(parts, "\n")
}
