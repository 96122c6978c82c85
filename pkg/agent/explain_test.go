package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/harun/ttyg/pkg/assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainNothingAsked(t *testing.T) {
	c, _, _, _ := newTestController(t, false)

	exp, err := c.Explain(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.False(t, exp.Asked)
	assert.False(t, exp.AnsweredDirectly())
}

func TestExplainAnsweredDirectly(t *testing.T) {
	c, backend, _, _ := newTestController(t, false)
	backend.Script(nil, done("42"))
	require.NoError(t, c.Ask(context.Background(), "asst_1", "thread_1", "q"))

	exp, err := c.Explain(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.True(t, exp.Asked)
	assert.True(t, exp.AnsweredDirectly())
}

func TestExplainListsToolCallsOfLatestRun(t *testing.T) {
	c, backend, tools, _ := newTestController(t, false)
	tools.outputs["sparql_query"] = "rows"

	backend.Script(nil, requiresAction(assistant.ToolCall{ID: "c1", Name: "sparql_query", Arguments: `{"query":"old"}`}))
	backend.Script(nil, done("first"))
	require.NoError(t, c.Ask(context.Background(), "asst_1", "thread_1", "q1"))

	backend.Script(nil, requiresAction(
		assistant.ToolCall{ID: "c2", Name: "sparql_query", Arguments: `{"query":"a"}`},
		assistant.ToolCall{ID: "c3", Name: "sparql_query", Arguments: `{"query":"b"}`},
	))
	backend.Script(nil, done("second"))
	require.NoError(t, c.Ask(context.Background(), "asst_1", "thread_1", "q2"))

	exp, err := c.Explain(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.False(t, exp.AnsweredDirectly())
	require.Len(t, exp.ToolCalls, 2)
	assert.Equal(t, `{"query":"a"}`, exp.ToolCalls[0].Arguments)
	assert.Equal(t, `{"query":"b"}`, exp.ToolCalls[1].Arguments)
}

func TestExplainBackendError(t *testing.T) {
	c, backend, _, _ := newTestController(t, false)
	backend.Fail["LatestRun"] = errors.New("unavailable")

	_, err := c.Explain(context.Background(), "thread_1")
	assert.Error(t, err)
}

func TestHistoryReturnsLastQuestionsOldestFirst(t *testing.T) {
	c, backend, _, _ := newTestController(t, false)
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		backend.Script(nil, done("a-"+q))
		require.NoError(t, c.Ask(context.Background(), "asst_1", "thread_1", q))
	}

	msgs, err := c.History(context.Background(), "thread_1", 3)
	require.NoError(t, err)

	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Texts[0])
	}
	assert.Equal(t, []string{"q2", "a-q2", "q3", "a-q3", "q4", "a-q4"}, texts)
	assert.Equal(t, assistant.RoleUser, msgs[0].Role)
	assert.Equal(t, assistant.RoleAssistant, msgs[1].Role)
}

func TestHistoryEmptyThread(t *testing.T) {
	c, _, _, _ := newTestController(t, false)

	msgs, err := c.History(context.Background(), "thread_1", 3)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = c.History(context.Background(), "thread_1", 0)
	require.NoError(t, err)
	assert.Nil(t, msgs)
}
