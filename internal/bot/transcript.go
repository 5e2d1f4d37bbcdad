package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/thread-tracker/pkg/discord"
)

// maxThreadMessages bounds every history fetch. Threads longer than this
// are silently truncated to their most recent messages; that is a known
// boundary condition, not something to paginate around.
const maxThreadMessages = 100

const replyExcerptLimit = 50

type transcriptFilter struct {
	BotUserID   string
	OwnerUserID string
	// ExcludeOwnerCommands drops the owner's command messages (content
	// starting with the command prefix). Only the plain strategy wants
	// this; model transcripts keep them.
	ExcludeOwnerCommands bool
}

// filterMessages returns the renderable subset in chronological order:
// no bot messages, no system messages, no tracking markers, optionally no
// owner commands.
func filterMessages(msgs []discord.Message, f transcriptFilter) []discord.Message {
	kept := make([]discord.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Author.ID == f.BotUserID {
			continue
		}
		if m.IsSystem() {
			continue
		}
		if _, found := ParseTrackedIssue(m.Content); found {
			continue
		}
		if f.ExcludeOwnerCommands && m.Author.ID == f.OwnerUserID && strings.HasPrefix(m.Content, commandPrefix) {
			continue
		}
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	return kept
}

// renderPlainTranscript builds the human-readable transcript used
// directly as an issue body by the plain strategy.
func renderPlainTranscript(thread *discord.Channel, msgs []discord.Message) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Discussion: %s\n", discord.MessageURL(thread.GuildID, thread.ID)))

	for _, m := range msgs {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("**%s**:\n", m.Author.Username))

		if m.ReferencedMessage != nil {
			sb.WriteString(fmt.Sprintf("> %s\n", excerpt(m.ReferencedMessage.Content)))
		}

		if m.Content != "" {
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}

		for _, a := range m.Attachments {
			sb.WriteString(fmt.Sprintf("[attachment: %s]\n", a.Filename))
		}
	}

	return sb.String()
}

// renderModelTranscript builds the denser transcript fed to the language
// model: one line per message with its ID and reply link, no truncation,
// no attachment placeholders.
func renderModelTranscript(thread *discord.Channel, msgs []discord.Message) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Thread: %s\n\n", thread.Name))

	for _, m := range msgs {
		sb.WriteString(m.ID)
		if m.ReferencedMessage != nil {
			sb.WriteString(fmt.Sprintf(" (replies to %s)", m.ReferencedMessage.ID))
		}
		sb.WriteString(fmt.Sprintf(" %s: %s\n", m.Author.Username, m.Content))
	}

	return sb.String()
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= replyExcerptLimit {
		return content
	}
	return string(runes[:replyExcerptLimit]) + "…"
}
