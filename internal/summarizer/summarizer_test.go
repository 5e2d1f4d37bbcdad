package summarizer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/thread-tracker/internal/summarizer"
)

type fakeClient struct {
	lastReq  summarizer.Request
	response string
	err      error
}

func (f *fakeClient) Chat(ctx context.Context, req summarizer.Request, result any) error {
	f.lastReq = req
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), result)
}

func (f *fakeClient) Model() string {
	return "fake-model"
}

func TestGenerator_Create_Feature(t *testing.T) {
	fake := &fakeClient{response: `{"title": "Dark mode", "description": "Add a dark theme."}`}
	gen := summarizer.NewGenerator(fake)

	summary, err := gen.Create(context.Background(), "1 alice: please add dark mode", false)

	require.NoError(t, err)
	require.Equal(t, "Dark mode", summary.Title)
	require.Equal(t, "Add a dark theme.", summary.Description)
	require.Empty(t, summary.ReplicationSteps)

	require.Equal(t, "feature_request", fake.lastReq.SchemaName)
	require.Contains(t, fake.lastReq.UserPrompt, "please add dark mode")
	require.NotNil(t, fake.lastReq.Temperature)
	require.InDelta(t, 0.2, *fake.lastReq.Temperature, 0.001)
}

func TestGenerator_Create_Bug(t *testing.T) {
	fake := &fakeClient{response: `{
		"title": "Crash on save",
		"description": "Saving crashes the tab.",
		"replicationSteps": "1. Open editor\n2. Save",
		"extensionVersion": "1.4.2",
		"browsersUsed": "Firefox"
	}`}
	gen := summarizer.NewGenerator(fake)

	summary, err := gen.Create(context.Background(), "transcript", true)

	require.NoError(t, err)
	require.Equal(t, "Crash on save", summary.Title)
	require.Equal(t, "1. Open editor\n2. Save", summary.ReplicationSteps)
	require.Equal(t, "Firefox", summary.BrowsersUsed)
	require.Equal(t, "bug_report", fake.lastReq.SchemaName)
}

func TestGenerator_Update_CarriesExistingIssue(t *testing.T) {
	fake := &fakeClient{response: `{"title": "Crash on save", "description": "Still crashes."}`}
	gen := summarizer.NewGenerator(fake)

	_, err := gen.Update(context.Background(), "new transcript", "Crash on save", "Old body", true)

	require.NoError(t, err)
	require.Contains(t, fake.lastReq.UserPrompt, "Existing issue title:\nCrash on save")
	require.Contains(t, fake.lastReq.UserPrompt, "Old body")
	require.Contains(t, fake.lastReq.SystemPrompt, "baseline")
}

func TestGenerator_MissingFieldsFail(t *testing.T) {
	type tc struct {
		name     string
		response string
	}

	cases := []tc{
		{name: "missing title", response: `{"title": "", "description": "body"}`},
		{name: "missing description", response: `{"title": "t", "description": ""}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gen := summarizer.NewGenerator(&fakeClient{response: c.response})

			summary, err := gen.Create(context.Background(), "transcript", false)

			require.Error(t, err)
			require.Nil(t, summary)
		})
	}
}

func TestGenerator_ClientErrorPropagates(t *testing.T) {
	gen := summarizer.NewGenerator(&fakeClient{err: errors.New("rate limited")})

	summary, err := gen.Create(context.Background(), "transcript", false)

	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
	require.Nil(t, summary)
}
