package discord

import "time"

// Channel type constants (Discord API v10).
const (
	ChannelTypeGuildText     = 0
	ChannelTypePublicThread  = 11
	ChannelTypePrivateThread = 12
	ChannelTypeGuildForum    = 15
)

// Message type constants. Anything other than Default and Reply is a
// system message (thread created, pins, joins, ...).
const (
	MessageTypeDefault = 0
	MessageTypeReply   = 19
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type ForumTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Channel struct {
	ID            string     `json:"id"`
	GuildID       string     `json:"guild_id"`
	Name          string     `json:"name"`
	Type          int        `json:"type"`
	ParentID      string     `json:"parent_id"`
	AppliedTags   []string   `json:"applied_tags"`
	AvailableTags []ForumTag `json:"available_tags"`
}

func (c *Channel) IsThread() bool {
	return c.Type == ChannelTypePublicThread || c.Type == ChannelTypePrivateThread
}

type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type Message struct {
	ID                string       `json:"id"`
	ChannelID         string       `json:"channel_id"`
	Author            User         `json:"author"`
	Content           string       `json:"content"`
	Timestamp         time.Time    `json:"timestamp"`
	Type              int          `json:"type"`
	Attachments       []Attachment `json:"attachments"`
	ReferencedMessage *Message     `json:"referenced_message"`
}

// IsSystem reports whether the message was emitted by the platform rather
// than typed by a user.
func (m *Message) IsSystem() bool {
	return m.Type != MessageTypeDefault && m.Type != MessageTypeReply
}
