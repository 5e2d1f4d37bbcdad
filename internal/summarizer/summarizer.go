// Package summarizer turns a rendered thread transcript into a
// structured issue summary via a schema-constrained LLM completion.
package summarizer

import (
	"context"
	"fmt"
)

// Summary is the structured result of one generation. The replication
// fields are only populated for bug reports.
type Summary struct {
	Title            string
	Description      string
	ReplicationSteps string
	ExtensionVersion string
	BrowsersUsed     string
}

type featureSummary struct {
	Title       string `json:"title" jsonschema:"description=Concise issue title"`
	Description string `json:"description" jsonschema:"description=Issue description distilled from the discussion"`
}

// Strict structured outputs demand every property in the schema's
// required list, so none of these fields may be omitempty; an empty
// string is how the model reports "not mentioned".
type bugSummary struct {
	Title            string `json:"title" jsonschema:"description=Concise issue title"`
	Description      string `json:"description" jsonschema:"description=Issue description distilled from the discussion"`
	ReplicationSteps string `json:"replicationSteps" jsonschema:"description=Steps to replicate the issue if the discussion mentions any or an empty string"`
	ExtensionVersion string `json:"extensionVersion" jsonschema:"description=Affected extension version if mentioned or an empty string"`
	BrowsersUsed     string `json:"browsersUsed" jsonschema:"description=Browsers the issue was observed in if mentioned or an empty string"`
}

const createSystemPrompt = `You summarize a forum discussion into an issue for a bug tracker.
Write a concise title and description from the discussion.
Omit greetings, small talk and details that were resolved and superseded later in the thread.
Do not use markdown headers in the description.`

const updateSystemPrompt = `You refresh an existing bug-tracker issue from the latest state of its forum discussion.
Treat the existing title and description as the baseline: only change them if the new discussion contains materially new or corrected information.
If the existing description embeds a "Tracked in" link, drop that line.
Omit greetings, small talk and details that were resolved and superseded later in the thread.
Do not use markdown headers in the description.`

// Generator produces issue summaries. Sampling leans deterministic;
// non-conforming model output is a hard failure for the invocation.
type Generator struct {
	llm Client
}

func NewGenerator(llm Client) *Generator {
	return &Generator{llm: llm}
}

func (g *Generator) Create(ctx context.Context, transcript string, bug bool) (*Summary, error) {
	userPrompt := fmt.Sprintf("Discussion thread:\n\n%s", transcript)
	return g.generate(ctx, createSystemPrompt, userPrompt, bug)
}

func (g *Generator) Update(ctx context.Context, transcript, existingTitle, existingBody string, bug bool) (*Summary, error) {
	userPrompt := fmt.Sprintf(
		"Existing issue title:\n%s\n\nExisting issue description:\n%s\n\nDiscussion thread:\n\n%s",
		existingTitle, existingBody, transcript)
	return g.generate(ctx, updateSystemPrompt, userPrompt, bug)
}

func (g *Generator) generate(ctx context.Context, systemPrompt, userPrompt string, bug bool) (*Summary, error) {
	if bug {
		var result bugSummary
		req := Request{
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			SchemaName:   "bug_report",
			Schema:       generateSchema[bugSummary](),
			Temperature:  temp(0.2),
		}
		if err := g.llm.Chat(ctx, req, &result); err != nil {
			return nil, fmt.Errorf("generating bug summary: %w", err)
		}
		summary := Summary{
			Title:            result.Title,
			Description:      result.Description,
			ReplicationSteps: result.ReplicationSteps,
			ExtensionVersion: result.ExtensionVersion,
			BrowsersUsed:     result.BrowsersUsed,
		}
		return validated(&summary)
	}

	var result featureSummary
	req := Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "feature_request",
		Schema:       generateSchema[featureSummary](),
		Temperature:  temp(0.2),
	}
	if err := g.llm.Chat(ctx, req, &result); err != nil {
		return nil, fmt.Errorf("generating feature summary: %w", err)
	}
	summary := Summary{
		Title:       result.Title,
		Description: result.Description,
	}
	return validated(&summary)
}

func validated(s *Summary) (*Summary, error) {
	if s.Title == "" {
		return nil, fmt.Errorf("model response missing title")
	}
	if s.Description == "" {
		return nil, fmt.Errorf("model response missing description")
	}
	return s, nil
}
