package discord_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/user/thread-tracker/pkg/discord"
	"github.com/user/thread-tracker/pkg/discord/mocks"
)

func TestClient_Channel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	responseBody := `{
		"id": "111",
		"guild_id": "999",
		"name": "crash-on-save",
		"type": 11,
		"parent_id": "222",
		"applied_tags": ["t1"]
	}`

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "https://discord.com/api/v10/channels/111", req.URL.String())
			require.Equal(t, "Bot test-token", req.Header.Get("Authorization"))
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(responseBody)),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	channel, err := client.Channel(context.Background(), "111")

	require.NoError(t, err)
	require.Equal(t, "crash-on-save", channel.Name)
	require.True(t, channel.IsThread())
	require.Equal(t, "222", channel.ParentID)
}

func TestClient_ChannelMessages_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	responseBody := `[
		{"id": "3", "channel_id": "111", "content": "newest", "type": 0, "author": {"id": "u1", "username": "alice"}},
		{"id": "2", "channel_id": "111", "content": "older", "type": 0, "author": {"id": "u2", "username": "bob"}}
	]`

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "https://discord.com/api/v10/channels/111/messages?limit=100", req.URL.String())
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(responseBody)),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	messages, err := client.ChannelMessages(context.Background(), "111", 100)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "newest", messages[0].Content)
	require.Equal(t, "alice", messages[0].Author.Username)
}

func TestClient_CreateMessage_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Equal(t, "https://discord.com/api/v10/channels/111/messages", req.URL.String())

			body, _ := io.ReadAll(req.Body)
			require.Contains(t, string(body), `"content":"Tracked in https://github.com/org/repo/issues/42"`)

			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"id": "55", "channel_id": "111"}`)),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	message, err := client.CreateMessage(context.Background(), "111", "Tracked in https://github.com/org/repo/issues/42")

	require.NoError(t, err)
	require.Equal(t, "55", message.ID)
}

func TestClient_EditMessage_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPatch, req.Method)
			require.Equal(t, "https://discord.com/api/v10/channels/111/messages/55", req.URL.String())

			body, _ := io.ReadAll(req.Body)
			require.Contains(t, string(body), `"content":"updated text"`)

			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"id": "55", "channel_id": "111", "content": "updated text"}`)),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	message, err := client.EditMessage(context.Background(), "111", "55", "updated text")

	require.NoError(t, err)
	require.Equal(t, "updated text", message.Content)
}

func TestClient_DeleteMessage_APIError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: 403,
			Body:       io.NopCloser(strings.NewReader(`{"message": "Missing Permissions"}`)),
		}, nil)

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	err := client.DeleteMessage(context.Background(), "111", "55")

	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestClient_AddReaction_EscapesEmoji(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPut, req.Method)
			require.Contains(t, req.URL.String(), "/channels/111/messages/55/reactions/")
			require.True(t, strings.HasSuffix(req.URL.String(), "/@me"))
			return &http.Response{
				StatusCode: 204,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	err := client.AddReaction(context.Background(), "111", "55", "👀")

	require.NoError(t, err)
}

func TestClient_SetThreadTags_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockHTTP := mocks.NewMockHTTPDoer(ctrl)
	mockHTTP.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPatch, req.Method)
			require.Equal(t, "https://discord.com/api/v10/channels/111", req.URL.String())

			body, _ := io.ReadAll(req.Body)
			require.Contains(t, string(body), `"applied_tags":["t1","t2"]`)

			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"id": "111"}`)),
			}, nil
		})

	client := discord.NewClientWithHTTP("test-token", mockHTTP)
	err := client.SetThreadTags(context.Background(), "111", []string{"t1", "t2"})

	require.NoError(t, err)
}

func TestMessage_IsSystem(t *testing.T) {
	type tc struct {
		name     string
		msgType  int
		isSystem bool
	}

	cases := []tc{
		{name: "default message", msgType: discord.MessageTypeDefault, isSystem: false},
		{name: "reply", msgType: discord.MessageTypeReply, isSystem: false},
		{name: "thread starter", msgType: 21, isSystem: true},
		{name: "pin notice", msgType: 6, isSystem: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := discord.Message{Type: c.msgType}
			require.Equal(t, c.isSystem, m.IsSystem())
		})
	}
}
