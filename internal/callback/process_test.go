package callback

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEpochLine(t *testing.T) {
	tests := []struct {
		line  string
		epoch int
		logs  Logs
		ok    bool
	}{
		{"epoch=0 accuracy=0.5 loss=1.25", 0, Logs{"accuracy": 0.5, "loss": 1.25}, true},
		{"  epoch=3", 3, Logs{}, true},
		{"Epoch 1/10", 0, nil, false},
		{"epoch=x accuracy=0.5", 0, nil, false},
		{"epoch=-1", 0, nil, false},
		{"epoch=1 accuracy", 0, nil, false},
		{"epoch=1 accuracy=high", 0, nil, false},
		{"", 0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			epoch, logs, ok := ParseEpochLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.epoch, epoch)
			assert.Equal(t, tt.logs, logs)
		})
	}
}

func shell(t *testing.T, script string, stdout *bytes.Buffer) *Process {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	return &Process{Name: "sh", Args: []string{"-c", script}, Env: []string{"UNITS=16"}, Stdout: stdout}
}

func TestProcessTrain(t *testing.T) {
	var out bytes.Buffer
	p := shell(t, `echo "training with $UNITS units"; echo "epoch=0 accuracy=0.5"; echo "epoch=1 accuracy=0.75"`, &out)

	var reported []Logs
	err := p.Train(context.Background(), func(epoch int, logs Logs) error {
		assert.Equal(t, len(reported), epoch)
		reported = append(reported, logs)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Logs{{"accuracy": 0.5}, {"accuracy": 0.75}}, reported)
	assert.Contains(t, out.String(), "training with 16 units")
}

func TestProcessTrainErrors(t *testing.T) {
	err := shell(t, "echo epoch=0 accuracy=0.5; exit 3", nil).Train(context.Background(), func(int, Logs) error { return nil })
	assert.ErrorContains(t, err, "training command failed")

	stop := errors.New("stop")
	err = shell(t, "echo epoch=0; echo epoch=1", nil).Train(context.Background(), func(int, Logs) error { return stop })
	assert.True(t, errors.Is(err, stop))
}
