package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/thread-tracker/internal/logger"
	"github.com/user/thread-tracker/pkg/discord"
	"github.com/user/thread-tracker/pkg/github"
)

const (
	commandPrefix = "!"
	cmdTrack      = "!track"
	cmdUpdate     = "!update"

	ackEmoji       = "👀"
	trackedTagName = "tracked"

	noticeAlreadyTracked = "A tracked issue already exists for this thread."
	noticeNoTracked      = "No tracked issue found for this thread."
	noticeUpdated        = "Issue updated."
	noticeError          = "Error processing request."
)

// ChatClient is the platform surface the dispatcher needs. *discord.Client
// satisfies it; tests use fakes.
type ChatClient interface {
	Channel(ctx context.Context, channelID string) (*discord.Channel, error)
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]discord.Message, error)
	CreateMessage(ctx context.Context, channelID, content string) (*discord.Message, error)
	CreateReply(ctx context.Context, channelID, content, replyToID string) (*discord.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RenameThread(ctx context.Context, threadID, name string) error
	SetThreadTags(ctx context.Context, threadID string, tagIDs []string) error
}

// IssueClient is the tracker surface. *github.Client satisfies it.
type IssueClient interface {
	CreateIssue(ctx context.Context, owner, repo string, issue github.NewIssue) (*github.Issue, error)
	UpdateIssue(ctx context.Context, owner, repo string, number int, issue github.NewIssue) (*github.Issue, error)
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error)
}

type Dispatcher struct {
	chat        ChatClient
	issues      IssueClient
	resolver    TrackingResolver
	strategy    Strategy
	botUserID   string
	ownerUserID string
	repoOwner   string
	repoName    string
	noticeDelay time.Duration
}

type DispatcherConfig struct {
	Chat        ChatClient
	Issues      IssueClient
	Resolver    TrackingResolver
	Strategy    Strategy
	BotUserID   string
	OwnerUserID string
	RepoOwner   string
	RepoName    string
	// NoticeDelay overrides the strategy default when non-zero.
	NoticeDelay time.Duration
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	delay := cfg.NoticeDelay
	if delay == 0 {
		delay = cfg.Strategy.NoticeDelay()
	}
	return &Dispatcher{
		chat:        cfg.Chat,
		issues:      cfg.Issues,
		resolver:    cfg.Resolver,
		strategy:    cfg.Strategy,
		botUserID:   cfg.BotUserID,
		ownerUserID: cfg.OwnerUserID,
		repoOwner:   cfg.RepoOwner,
		repoName:    cfg.RepoName,
		noticeDelay: delay,
	}
}

// HandleMessage processes one inbound chat message end to end. It is
// safe to call from concurrent goroutines; invocations share no state.
// Two near-simultaneous !track commands in one thread can both pass the
// duplicate check before either posts its marker; that race is accepted.
func (d *Dispatcher) HandleMessage(m *discord.Message) {
	ctx := context.Background()

	if m.Author.ID != d.ownerUserID {
		return
	}

	content := strings.TrimSpace(m.Content)
	isTrack := strings.HasPrefix(content, cmdTrack)
	isUpdate := strings.HasPrefix(content, cmdUpdate)
	if !isTrack && !isUpdate {
		return
	}

	log := logger.With(uuid.NewString())
	log.Info().
		Str("channel", m.ChannelID).
		Str("strategy", d.strategy.Name()).
		Bool("track", isTrack).
		Bool("update", isUpdate).
		Msg("Command received")

	thread, class, err := d.validateContext(ctx, log, m)
	if err != nil {
		log.Error().Err(err).Str("channel", m.ChannelID).Msg("Command failed")
		d.selfDeletingNotice(ctx, log, m, noticeError)
		return
	}
	if thread == nil {
		return
	}

	if isTrack && d.strategy.AllowsRename() {
		if title := strings.TrimSpace(strings.TrimPrefix(content, cmdTrack)); title != "" {
			if err := d.chat.RenameThread(ctx, thread.ID, title); err != nil {
				log.Warn().Err(err).Msg("Failed to rename thread")
			} else {
				thread.Name = title
			}
		}
	}

	if err := d.chat.AddReaction(ctx, m.ChannelID, m.ID, ackEmoji); err != nil {
		log.Warn().Err(err).Msg("Failed to add ack reaction")
	}

	if isTrack {
		err = d.handleTrack(ctx, log, thread, class, m)
	}
	if isUpdate {
		err = d.handleUpdate(ctx, log, thread, class, m)
	}

	if err != nil {
		log.Error().Err(err).Str("thread", thread.ID).Msg("Command failed")
		d.selfDeletingNotice(ctx, log, m, noticeError)
	}
}

// validateContext rejects invocations outside forum threads with a plain
// reply, returning a nil thread. A failed lookup is a remote-call failure
// and surfaces as an error for the caller's error boundary.
func (d *Dispatcher) validateContext(ctx context.Context, log zerolog.Logger, m *discord.Message) (*discord.Channel, Classification, error) {
	thread, err := d.chat.Channel(ctx, m.ChannelID)
	if err != nil {
		return nil, "", fmt.Errorf("fetching channel: %w", err)
	}

	if !thread.IsThread() {
		d.reply(ctx, log, m, "This command only works inside forum threads.")
		return nil, "", nil
	}

	parent, err := d.chat.Channel(ctx, thread.ParentID)
	if err != nil {
		return nil, "", fmt.Errorf("fetching parent channel: %w", err)
	}

	if parent.Type != discord.ChannelTypeGuildForum {
		d.reply(ctx, log, m, "This command only works inside forum threads.")
		return nil, "", nil
	}

	// Carry the forum's tag set on the thread value so later steps
	// need no second lookup.
	thread.AvailableTags = parent.AvailableTags

	return thread, Classify(parent.Name), nil
}

func (d *Dispatcher) handleTrack(ctx context.Context, log zerolog.Logger, thread *discord.Channel, class Classification, m *discord.Message) error {
	if number, found, err := d.resolver.Resolve(ctx, thread.ID); err != nil {
		return fmt.Errorf("checking for existing tracked issue: %w", err)
	} else if found {
		log.Info().Int("issue", number).Msg("Thread already tracked")
		d.selfDeletingNotice(ctx, log, m, noticeAlreadyTracked)
		return nil
	}

	in, err := d.buildInput(ctx, thread, class)
	if err != nil {
		return err
	}

	content, err := d.strategy.BuildCreate(ctx, in)
	if err != nil {
		return err
	}

	body := content.Body
	if content.EmbedMarker {
		body = body + "\n\n" + TrackingMarker(in.ThreadURL)
	}

	issue, err := d.issues.CreateIssue(ctx, d.repoOwner, d.repoName, github.NewIssue{
		Title:  content.Title,
		Body:   body,
		Labels: content.Labels,
	})
	if err != nil {
		return fmt.Errorf("creating issue: %w", err)
	}

	log.Info().Int("issue", issue.Number).Str("url", issue.HTMLURL).Msg("Issue created")

	if _, err := d.chat.CreateMessage(ctx, thread.ID, TrackingMarker(issue.HTMLURL)); err != nil {
		return fmt.Errorf("posting tracking marker: %w", err)
	}

	if err := d.resolver.Record(ctx, thread.ID, issue.Number, issue.HTMLURL, m.Author.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to record tracked issue")
	}

	d.applyTrackedTag(ctx, log, thread)

	if err := d.chat.DeleteMessage(ctx, m.ChannelID, m.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to delete command message")
	}

	return nil
}

func (d *Dispatcher) handleUpdate(ctx context.Context, log zerolog.Logger, thread *discord.Channel, class Classification, m *discord.Message) error {
	number, found, err := d.resolver.Resolve(ctx, thread.ID)
	if err != nil {
		return fmt.Errorf("resolving tracked issue: %w", err)
	}
	if !found {
		log.Info().Msg("No tracked issue for thread")
		d.selfDeletingNotice(ctx, log, m, noticeNoTracked)
		return nil
	}

	existing, err := d.issues.GetIssue(ctx, d.repoOwner, d.repoName, number)
	if err != nil {
		return fmt.Errorf("fetching issue #%d: %w", number, err)
	}

	in, err := d.buildInput(ctx, thread, class)
	if err != nil {
		return err
	}

	content, err := d.strategy.BuildUpdate(ctx, in, existing.Title, existing.Body)
	if err != nil {
		return err
	}

	body := content.Body
	if content.EmbedMarker {
		body = body + "\n\n" + TrackingMarker(in.ThreadURL)
	}

	if _, err := d.issues.UpdateIssue(ctx, d.repoOwner, d.repoName, number, github.NewIssue{
		Title:  content.Title,
		Body:   body,
		Labels: content.Labels,
	}); err != nil {
		return fmt.Errorf("updating issue #%d: %w", number, err)
	}

	log.Info().Int("issue", number).Msg("Issue updated")

	d.selfDeletingNotice(ctx, log, m, noticeUpdated)
	return nil
}

func (d *Dispatcher) buildInput(ctx context.Context, thread *discord.Channel, class Classification) (BuildInput, error) {
	msgs, err := d.chat.ChannelMessages(ctx, thread.ID, maxThreadMessages)
	if err != nil {
		return BuildInput{}, fmt.Errorf("fetching thread messages: %w", err)
	}

	return BuildInput{
		Thread:      thread,
		Messages:    msgs,
		ThreadURL:   discord.MessageURL(thread.GuildID, thread.ID),
		BotUserID:   d.botUserID,
		OwnerUserID: d.ownerUserID,
		Class:       class,
	}, nil
}

// applyTrackedTag tags the thread when its forum exposes a tag literally
// named "tracked". Forums without one are left alone.
func (d *Dispatcher) applyTrackedTag(ctx context.Context, log zerolog.Logger, thread *discord.Channel) {
	var tagID string
	for _, tag := range thread.AvailableTags {
		if strings.EqualFold(tag.Name, trackedTagName) {
			tagID = tag.ID
			break
		}
	}
	if tagID == "" {
		return
	}

	for _, applied := range thread.AppliedTags {
		if applied == tagID {
			return
		}
	}

	tags := append(append([]string{}, thread.AppliedTags...), tagID)
	if err := d.chat.SetThreadTags(ctx, thread.ID, tags); err != nil {
		log.Warn().Err(err).Msg("Failed to apply tracked tag")
	}
}

func (d *Dispatcher) reply(ctx context.Context, log zerolog.Logger, m *discord.Message, text string) {
	if _, err := d.chat.CreateReply(ctx, m.ChannelID, text, m.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to post reply")
	}
}

// selfDeletingNotice posts the notice, deletes the triggering command
// message, waits the configured delay and then deletes the notice. A
// restart during the wait orphans the notice; that is accepted.
func (d *Dispatcher) selfDeletingNotice(ctx context.Context, log zerolog.Logger, m *discord.Message, text string) {
	notice, err := d.chat.CreateMessage(ctx, m.ChannelID, text)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to post notice")
		return
	}

	if err := d.chat.DeleteMessage(ctx, m.ChannelID, m.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to delete command message")
	}

	time.Sleep(d.noticeDelay)

	if err := d.chat.DeleteMessage(ctx, m.ChannelID, notice.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to delete notice")
	}
}
