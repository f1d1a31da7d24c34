// Package conversation answers user messages with retrieval-augmented
// prompts and keeps the per-session turn history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careassist/internal/contextutil"
	"careassist/internal/index"
	"careassist/internal/llm"
)

// ErrAnswerGeneration marks a language model failure while producing an
// answer. The call is not retried.
var ErrAnswerGeneration = errors.New("answer generation failed")

const fallbackReply = "I'm sorry, I couldn't process that right now. Please try again or contact the front desk."

// Completer produces a chat completion from an ordered message list.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Searcher retrieves indexed chunks similar to a query.
type Searcher interface {
	Search(ctx context.Context, text string, k int) ([]index.SearchResult, error)
	Ready() bool
}

// Result is the outcome of one answer call.
type Result struct {
	// Text is the model's reply.
	Text string
	// Retrieved is the number of context chunks used.
	Retrieved int
	// TopScore is the best similarity score among retrieved chunks,
	// zero when nothing was retrieved.
	TopScore float32
}

// Engine answers messages. With an index present it retrieves the top-k
// similar chunks and grounds the prompt in them; without one it falls back to
// a plain role-prompted call.
type Engine struct {
	completer Completer
	searcher  Searcher
	history   *History
	k         int
}

// NewEngine creates a conversation engine. k is the retrieval depth.
func NewEngine(completer Completer, searcher Searcher, history *History, k int) *Engine {
	return &Engine{
		completer: completer,
		searcher:  searcher,
		history:   history,
		k:         k,
	}
}

// Answer produces a reply to the message for the given session and role.
// The exchange is recorded as two new history turns whether or not the model
// call succeeds; on failure the recorded assistant turn is a fallback notice
// and the returned error wraps ErrAnswerGeneration.
func (e *Engine) Answer(ctx context.Context, session string, role Role, message string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var (
		hits []index.SearchResult
		err  error
	)
	if e.searcher.Ready() {
		hits, err = e.searcher.Search(ctx, message, e.k)
		if err != nil {
			// Retrieval trouble degrades to an index-free answer rather
			// than failing the exchange.
			logger.WarnContext(ctx, "retrieval failed, answering without context",
				"session", session, "error", err)
			hits = nil
		}
	}

	messages := e.buildMessages(session, role, message, hits)
	logger.InfoContext(ctx, "answering message",
		"session", session, "role", string(role), "retrieved", len(hits))

	now := time.Now()
	text, err := e.completer.Complete(ctx, messages)
	if err != nil {
		e.history.Append(session,
			Turn{Role: "user", Content: message, At: now},
			Turn{Role: "assistant", Content: fallbackReply, At: time.Now()},
		)
		return Result{}, fmt.Errorf("%w: %v", ErrAnswerGeneration, err)
	}

	e.history.Append(session,
		Turn{Role: "user", Content: message, At: now},
		Turn{Role: "assistant", Content: text, At: time.Now()},
	)

	result := Result{Text: text, Retrieved: len(hits)}
	for _, hit := range hits {
		if hit.Score > result.TopScore {
			result.TopScore = hit.Score
		}
	}
	return result, nil
}

// buildMessages assembles the prompt: role instructions, recent history, then
// the user message with retrieved context attached.
func (e *Engine) buildMessages(session string, role Role, message string, hits []index.SearchResult) []llm.Message {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt(role)},
	}
	for _, turn := range e.history.Recent(session) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	content := message
	if len(hits) > 0 {
		content = fmt.Sprintf("%s\n\n%s", message, contextBlock(hits))
	}
	return append(messages, llm.Message{Role: "user", Content: content})
}

// contextBlock renders retrieved chunks into a delimited context section.
func contextBlock(hits []index.SearchResult) string {
	var b strings.Builder
	b.WriteString("--- Context from hospital documents ---\n\n")
	for _, hit := range hits {
		source, _ := hit.Meta["source"].(string)
		text, _ := hit.Meta["text"].(string)
		if text == "" {
			continue
		}
		if source != "" {
			fmt.Fprintf(&b, "[Source: %s]\n", source)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	b.WriteString("--- End context ---")
	return b.String()
}
