package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnumsEncodeAsNames(t *testing.T) {
	session := Session{End: &SessionEnd{Status: SessionStatusFailure}}
	info := HParamInfo{Name: "optimizer", Type: DataTypeString}

	data, err := json.Marshal(session)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"FAILURE"`)

	data, err = json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"DATA_TYPE_STRING"`)

	var decoded HParamInfo
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, info, decoded)

	out, err := yaml.Marshal(session)
	require.NoError(t, err)
	assert.Contains(t, string(out), "status: FAILURE")

	var end SessionEnd
	require.NoError(t, yaml.Unmarshal([]byte("status: success\n"), &end))
	assert.Equal(t, SessionStatusSuccess, end.Status)
	assert.Error(t, yaml.Unmarshal([]byte("status: done\n"), &end))
}

func TestRunStatusFromSession(t *testing.T) {
	assert.Equal(t, RunStatusFinished, RunStatusFromSession(SessionStatusSuccess))
	assert.Equal(t, RunStatusFailed, RunStatusFromSession(SessionStatusFailure))
	assert.Equal(t, RunStatusRunning, RunStatusFromSession(SessionStatusRunning))
	assert.Equal(t, RunStatusKilled, RunStatusFromSession(SessionStatusUnknown))
	assert.True(t, RunStatusKilled.IsTerminal())
	assert.False(t, RunStatusRunning.IsTerminal())
}
