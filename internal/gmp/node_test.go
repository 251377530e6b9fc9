package gmp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTaskResponse = `<get_tasks_response status="200" status_text="OK">
  <task id="task-1">
    <name>GitHub Actions Scan (10.0.0.5)</name>
    <status>Running</status>
    <progress>42</progress>
    <last_report>
      <report id="report-1"/>
    </last_report>
  </task>
  <task id="task-2">
    <name>Other scan</name>
    <status>Done</status>
    <progress>100</progress>
  </task>
</get_tasks_response>`

func TestParseBytes(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)
	assert.Equal(t, "get_tasks_response", node.Name())
	assert.Equal(t, "200", node.Attr("status"))
	assert.Equal(t, "OK", node.Attr("status_text"))
}

func TestParseBytesInvalid(t *testing.T) {
	_, err := ParseBytes([]byte("<unclosed"))
	assert.Error(t, err)
}

func TestAttr(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)

	assert.Equal(t, "task-1", node.Find("task").Attr("id"))
	assert.Equal(t, "", node.Attr("missing"))

	var nilNode *Node
	assert.Equal(t, "", nilNode.Attr("status"))
}

func TestFind(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)

	// First match wins on multi-match paths.
	assert.Equal(t, "task-1", node.Find("task").Attr("id"))
	assert.Equal(t, "Running", node.Find("task/status").Text())
	assert.Equal(t, "42", node.Find("task/progress").Text())
	assert.Equal(t, "report-1", node.Find("task/last_report/report").Attr("id"))
}

func TestFindAbsent(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)

	assert.Nil(t, node.Find("task/nothing"))
	assert.Nil(t, node.Find("missing/path"))
	assert.Empty(t, node.FindAll("missing"))
	assert.Equal(t, "", node.Find("task/nothing").Text())
	assert.Equal(t, "", node.Find("task/nothing").Attr("id"))
}

func TestFindAllOrder(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)

	tasks := node.FindAll("task")
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-1", tasks[0].Attr("id"))
	assert.Equal(t, "task-2", tasks[1].Attr("id"))
}

func TestDescendants(t *testing.T) {
	node, err := ParseBytes([]byte(sampleTaskResponse))
	require.NoError(t, err)

	reports := node.Descendants("report")
	require.Len(t, reports, 1)
	assert.Equal(t, "report-1", reports[0].Attr("id"))

	assert.Empty(t, node.Descendants("nothing"))
}

func TestTextConcatenatesDescendants(t *testing.T) {
	node, err := ParseBytes([]byte(`<r>a<x>b<y>c</y></x>d</r>`))
	require.NoError(t, err)

	// Own text first, then children in document order.
	assert.Equal(t, "adbc", node.Text())
	assert.Equal(t, "bc", node.Find("x").Text())
}

func TestTextUnescapes(t *testing.T) {
	node, err := ParseBytes([]byte(`<report>&lt;report&gt;ok&lt;/report&gt;</report>`))
	require.NoError(t, err)
	assert.Equal(t, "<report>ok</report>", node.Text())
}

func TestString(t *testing.T) {
	node, err := ParseBytes([]byte(`<task id="t1"><status>Stopped</status></task>`))
	require.NoError(t, err)

	rendered := node.String()
	assert.True(t, strings.HasPrefix(rendered, "<task"))
	assert.Contains(t, rendered, `id="t1"`)
	assert.Contains(t, rendered, "<status>Stopped</status>")

	roundTrip, err := ParseBytes([]byte(rendered))
	require.NoError(t, err)
	assert.Equal(t, "Stopped", roundTrip.Find("status").Text())
}
