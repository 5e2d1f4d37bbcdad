package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/user/thread-tracker/internal/store"
)

// The textual convention linking a thread to its issue. Its presence in
// a thread message is the source of truth; there is no separate mapping.
var trackedIssueRegex = regexp.MustCompile(`Tracked in \S+/issues/(\d+)`)

// ParseTrackedIssue extracts the issue number from a tracking marker, if
// the content carries one.
func ParseTrackedIssue(content string) (int, bool) {
	matches := trackedIssueRegex.FindStringSubmatch(content)
	if matches == nil {
		return 0, false
	}
	number, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return number, true
}

// TrackingMarker renders the marker line for a created issue.
func TrackingMarker(issueURL string) string {
	return "Tracked in " + issueURL
}

// TrackingResolver recovers the issue tracked by a thread. The history
// scan is the canonical implementation; a persisted index can be layered
// on top without the dispatcher noticing.
type TrackingResolver interface {
	Resolve(ctx context.Context, threadID string) (int, bool, error)
	Record(ctx context.Context, threadID string, issueNumber int, issueURL, createdBy string) error
}

type historyResolver struct {
	chat        ChatClient
	botUserID   string
	ownerUserID string
}

func NewHistoryResolver(chat ChatClient, botUserID, ownerUserID string) TrackingResolver {
	return &historyResolver{chat: chat, botUserID: botUserID, ownerUserID: ownerUserID}
}

// Resolve scans recent thread messages in fetch order and returns the
// first marker found in a message from the owner or the bot. First
// encountered wins when several markers exist.
func (r *historyResolver) Resolve(ctx context.Context, threadID string) (int, bool, error) {
	msgs, err := r.chat.ChannelMessages(ctx, threadID, maxThreadMessages)
	if err != nil {
		return 0, false, fmt.Errorf("fetching thread history: %w", err)
	}

	for _, m := range msgs {
		if m.Author.ID != r.botUserID && m.Author.ID != r.ownerUserID {
			continue
		}
		if number, found := ParseTrackedIssue(m.Content); found {
			return number, true, nil
		}
	}

	return 0, false, nil
}

// Record is a no-op: the marker message posted in the thread is the
// record.
func (r *historyResolver) Record(ctx context.Context, threadID string, issueNumber int, issueURL, createdBy string) error {
	return nil
}

type storeResolver struct {
	history TrackingResolver
	index   *store.Store
}

// NewStoreResolver wraps the history scan with a persisted index. The
// index is consulted first and back-filled from history hits; history
// remains authoritative when the index is empty.
func NewStoreResolver(history TrackingResolver, index *store.Store) TrackingResolver {
	return &storeResolver{history: history, index: index}
}

func (r *storeResolver) Resolve(ctx context.Context, threadID string) (int, bool, error) {
	number, ok, err := r.index.Get(ctx, threadID)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return number, true, nil
	}

	number, ok, err = r.history.Resolve(ctx, threadID)
	if err != nil || !ok {
		return 0, ok, err
	}

	if err := r.index.Put(ctx, threadID, number, "", ""); err != nil {
		// Index failures must not mask a successful history resolution.
		return number, true, nil
	}
	return number, true, nil
}

func (r *storeResolver) Record(ctx context.Context, threadID string, issueNumber int, issueURL, createdBy string) error {
	return r.index.Put(ctx, threadID, issueNumber, issueURL, createdBy)
}
