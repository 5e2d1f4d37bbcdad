package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/user/thread-tracker/internal/summarizer"
	"github.com/user/thread-tracker/pkg/discord"
)

// IssueContent is what a strategy derives from a thread for one
// issue-tracker write.
type IssueContent struct {
	Title  string
	Body   string
	Labels []string
	// EmbedMarker asks the dispatcher to append the thread back-reference
	// to the issue body instead of relying on the thread-side marker
	// message alone.
	EmbedMarker bool
}

// BuildInput carries everything a strategy may want: the thread, its raw
// fetched history and the classification derived from the parent forum.
type BuildInput struct {
	Thread      *discord.Channel
	Messages    []discord.Message
	ThreadURL   string
	BotUserID   string
	OwnerUserID string
	Class       Classification
}

// Strategy is the pluggable summarization capability. The two
// implementations keep their historical behavioral differences (message
// filtering, notice delay, marker placement, rename support) rather than
// guessing a unified behavior.
type Strategy interface {
	Name() string
	NoticeDelay() time.Duration
	AllowsRename() bool
	BuildCreate(ctx context.Context, in BuildInput) (*IssueContent, error)
	BuildUpdate(ctx context.Context, in BuildInput, existingTitle, existingBody string) (*IssueContent, error)
}

// PlainStrategy copies the discussion verbatim: the issue body is the
// rendered transcript and the thread title becomes the issue title.
type PlainStrategy struct{}

func NewPlainStrategy() *PlainStrategy {
	return &PlainStrategy{}
}

func (s *PlainStrategy) Name() string { return "plain" }

func (s *PlainStrategy) NoticeDelay() time.Duration { return 60 * time.Second }

func (s *PlainStrategy) AllowsRename() bool { return true }

func (s *PlainStrategy) BuildCreate(ctx context.Context, in BuildInput) (*IssueContent, error) {
	return s.build(in), nil
}

func (s *PlainStrategy) BuildUpdate(ctx context.Context, in BuildInput, existingTitle, existingBody string) (*IssueContent, error) {
	return s.build(in), nil
}

func (s *PlainStrategy) build(in BuildInput) *IssueContent {
	msgs := filterMessages(in.Messages, transcriptFilter{
		BotUserID:            in.BotUserID,
		OwnerUserID:          in.OwnerUserID,
		ExcludeOwnerCommands: true,
	})

	return &IssueContent{
		Title:  in.Thread.Name,
		Body:   renderPlainTranscript(in.Thread, msgs),
		Labels: issueLabels(in.Class, false),
	}
}

// AIStrategy compresses the discussion through the summary generator and
// embeds the thread back-reference in the issue body.
type AIStrategy struct {
	gen *summarizer.Generator
}

func NewAIStrategy(gen *summarizer.Generator) *AIStrategy {
	return &AIStrategy{gen: gen}
}

func (s *AIStrategy) Name() string { return "ai" }

func (s *AIStrategy) NoticeDelay() time.Duration { return 10 * time.Second }

func (s *AIStrategy) AllowsRename() bool { return false }

func (s *AIStrategy) BuildCreate(ctx context.Context, in BuildInput) (*IssueContent, error) {
	transcript := s.transcript(in)

	summary, err := s.gen.Create(ctx, transcript, in.Class == ClassificationBug)
	if err != nil {
		return nil, fmt.Errorf("summarizing thread: %w", err)
	}

	return s.content(summary, in.Class), nil
}

func (s *AIStrategy) BuildUpdate(ctx context.Context, in BuildInput, existingTitle, existingBody string) (*IssueContent, error) {
	transcript := s.transcript(in)

	summary, err := s.gen.Update(ctx, transcript, existingTitle, stripTrackingMarker(existingBody), in.Class == ClassificationBug)
	if err != nil {
		return nil, fmt.Errorf("summarizing thread for update: %w", err)
	}

	return s.content(summary, in.Class), nil
}

func (s *AIStrategy) transcript(in BuildInput) string {
	msgs := filterMessages(in.Messages, transcriptFilter{
		BotUserID:   in.BotUserID,
		OwnerUserID: in.OwnerUserID,
	})
	return renderModelTranscript(in.Thread, msgs)
}

func (s *AIStrategy) content(summary *summarizer.Summary, class Classification) *IssueContent {
	return &IssueContent{
		Title:       summary.Title,
		Body:        formatSummaryBody(summary, class),
		Labels:      issueLabels(class, true),
		EmbedMarker: true,
	}
}
