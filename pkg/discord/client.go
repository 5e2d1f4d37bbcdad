package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

//go:generate mockgen -destination=mocks/http_doer_mock.go -package=mocks github.com/user/thread-tracker/pkg/discord HTTPDoer

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	token      string
	httpClient HTTPDoer
	baseURL    string
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{},
		baseURL:    "https://discord.com/api/v10",
	}
}

func NewClientWithHTTP(token string, httpClient HTTPDoer) *Client {
	return &Client{
		token:      token,
		httpClient: httpClient,
		baseURL:    "https://discord.com/api/v10",
	}
}

func (c *Client) Channel(ctx context.Context, channelID string) (*Channel, error) {
	var channel Channel
	url := fmt.Sprintf("%s/channels/%s", c.baseURL, channelID)
	if err := c.do(ctx, http.MethodGet, url, nil, &channel); err != nil {
		return nil, fmt.Errorf("getting channel %s: %w", channelID, err)
	}
	return &channel, nil
}

// ChannelMessages returns up to limit most recent messages, newest first
// (the API's default order). Limit is capped at 100 by the API.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	var messages []Message
	url := fmt.Sprintf("%s/channels/%s/messages?limit=%d", c.baseURL, channelID, limit)
	if err := c.do(ctx, http.MethodGet, url, nil, &messages); err != nil {
		return nil, fmt.Errorf("getting messages for channel %s: %w", channelID, err)
	}
	return messages, nil
}

type createMessagePayload struct {
	Content          string            `json:"content"`
	MessageReference *messageReference `json:"message_reference,omitempty"`
}

type messageReference struct {
	MessageID string `json:"message_id"`
}

func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (*Message, error) {
	return c.postMessage(ctx, channelID, createMessagePayload{Content: content})
}

func (c *Client) CreateReply(ctx context.Context, channelID, content, replyToID string) (*Message, error) {
	return c.postMessage(ctx, channelID, createMessagePayload{
		Content:          content,
		MessageReference: &messageReference{MessageID: replyToID},
	})
}

func (c *Client) postMessage(ctx context.Context, channelID string, payload createMessagePayload) (*Message, error) {
	var message Message
	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	if err := c.do(ctx, http.MethodPost, url, payload, &message); err != nil {
		return nil, fmt.Errorf("posting message to channel %s: %w", channelID, err)
	}
	return &message, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) (*Message, error) {
	var message Message
	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, channelID, messageID)
	if err := c.do(ctx, http.MethodPatch, url, createMessagePayload{Content: content}, &message); err != nil {
		return nil, fmt.Errorf("editing message %s: %w", messageID, err)
	}
	return &message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, channelID, messageID)
	if err := c.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return fmt.Errorf("deleting message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	reactionURL := fmt.Sprintf("%s/channels/%s/messages/%s/reactions/%s/@me",
		c.baseURL, channelID, messageID, url.PathEscape(emoji))
	if err := c.do(ctx, http.MethodPut, reactionURL, nil, nil); err != nil {
		return fmt.Errorf("adding reaction to message %s: %w", messageID, err)
	}
	return nil
}

type renameThreadPayload struct {
	Name string `json:"name"`
}

func (c *Client) RenameThread(ctx context.Context, threadID, name string) error {
	url := fmt.Sprintf("%s/channels/%s", c.baseURL, threadID)
	if err := c.do(ctx, http.MethodPatch, url, renameThreadPayload{Name: name}, nil); err != nil {
		return fmt.Errorf("renaming thread %s: %w", threadID, err)
	}
	return nil
}

type appliedTagsPayload struct {
	AppliedTags []string `json:"applied_tags"`
}

func (c *Client) SetThreadTags(ctx context.Context, threadID string, tagIDs []string) error {
	url := fmt.Sprintf("%s/channels/%s", c.baseURL, threadID)
	if err := c.do(ctx, http.MethodPatch, url, appliedTagsPayload{AppliedTags: tagIDs}, nil); err != nil {
		return fmt.Errorf("setting tags on thread %s: %w", threadID, err)
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	url := fmt.Sprintf("%s/users/@me", c.baseURL)
	if err := c.do(ctx, http.MethodGet, url, nil, &user); err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	return &user, nil
}

// MessageURL builds the canonical jump link for a thread or message.
func MessageURL(guildID, channelID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, channelID)
}

func (c *Client) do(ctx context.Context, method, url string, payload, result any) error {
	var reqBody *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
