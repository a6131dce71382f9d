package eventlog

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/imishinist/mlflow-hparams/internal/pbwire"
	timeutils "github.com/imishinist/mlflow-hparams/internal/time"
)

// FileVersion is written as the first record of every event file.
const FileVersion = "brain.Event:2"

// Field numbers of tensorflow.Event, tensorflow.Summary and friends.
const (
	eventWallTime    protowire.Number = 1
	eventStep        protowire.Number = 2
	eventFileVersion protowire.Number = 3
	eventSummary     protowire.Number = 5

	summaryValue protowire.Number = 1

	valueTag         protowire.Number = 1
	valueSimpleValue protowire.Number = 2
	valueTensor      protowire.Number = 8
	valueMetadata    protowire.Number = 9

	metadataPluginData protowire.Number = 1
	pluginName         protowire.Number = 1
	pluginContent      protowire.Number = 2

	tensorDType   protowire.Number = 1
	tensorShape   protowire.Number = 2
	tensorContent protowire.Number = 4
	tensorFloat   protowire.Number = 5
	tensorDouble  protowire.Number = 6
)

type DType int32

const (
	DTFloat  DType = 1
	DTDouble DType = 2
)

// Tensor is the subset of tensorflow.TensorProto needed for scalar summaries.
type Tensor struct {
	DType     DType
	FloatVal  []float32
	DoubleVal []float64
	Content   []byte
}

// NullTensor is the scalar placeholder attached to plugin-only summaries.
func NullTensor() *Tensor {
	return &Tensor{DType: DTFloat, FloatVal: []float32{0}}
}

// Scalar returns the first element of a float or double tensor.
func (t *Tensor) Scalar() (float64, bool) {
	switch t.DType {
	case DTFloat:
		if len(t.FloatVal) > 0 {
			return float64(t.FloatVal[0]), true
		}
		if len(t.Content) >= 4 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(t.Content))), true
		}
	case DTDouble:
		if len(t.DoubleVal) > 0 {
			return t.DoubleVal[0], true
		}
		if len(t.Content) >= 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(t.Content)), true
		}
	}
	return 0, false
}

// SummaryValue is one tagged entry of a summary.
type SummaryValue struct {
	Tag           string
	PluginName    string
	PluginContent []byte
	SimpleValue   *float64
	Tensor        *Tensor
}

// Event is one record of an event file. FileVersion and Summary are
// mutually exclusive.
type Event struct {
	WallTime    time.Time
	Step        int64
	FileVersion string
	Summary     []SummaryValue
}

func (e *Event) Marshal() []byte {
	var b []byte
	b = pbwire.AppendDouble(b, eventWallTime, timeutils.WallTime(e.WallTime))
	b = pbwire.AppendVarint(b, eventStep, uint64(e.Step))
	switch {
	case e.FileVersion != "":
		b = pbwire.AppendString(b, eventFileVersion, e.FileVersion)
	case len(e.Summary) > 0:
		var summary []byte
		for i := range e.Summary {
			summary = pbwire.AppendMessage(summary, summaryValue, e.Summary[i].marshal())
		}
		b = pbwire.AppendMessage(b, eventSummary, summary)
	}
	return b
}

func (v *SummaryValue) marshal() []byte {
	var b []byte
	b = pbwire.AppendString(b, valueTag, v.Tag)
	if v.SimpleValue != nil {
		b = pbwire.AppendFloat(b, valueSimpleValue, float32(*v.SimpleValue))
	}
	if v.Tensor != nil {
		b = pbwire.AppendMessage(b, valueTensor, v.Tensor.marshal())
	}
	if v.PluginName != "" {
		var plugin []byte
		plugin = pbwire.AppendString(plugin, pluginName, v.PluginName)
		if len(v.PluginContent) > 0 {
			plugin = pbwire.AppendMessage(plugin, pluginContent, v.PluginContent)
		}
		b = pbwire.AppendMessage(b, valueMetadata, pbwire.AppendMessage(nil, metadataPluginData, plugin))
	}
	return b
}

func (t *Tensor) marshal() []byte {
	var b []byte
	b = pbwire.AppendVarint(b, tensorDType, uint64(t.DType))
	b = pbwire.AppendMessage(b, tensorShape, nil)
	if len(t.Content) > 0 {
		b = pbwire.AppendMessage(b, tensorContent, t.Content)
	}
	b = pbwire.AppendPackedFloats(b, tensorFloat, t.FloatVal)
	if len(t.DoubleVal) > 0 {
		packed := make([]byte, 0, 8*len(t.DoubleVal))
		for _, d := range t.DoubleVal {
			packed = protowire.AppendFixed64(packed, math.Float64bits(d))
		}
		b = pbwire.AppendMessage(b, tensorDouble, packed)
	}
	return b
}

// Unmarshal decodes a serialized tensorflow.Event. Unknown fields are skipped.
func Unmarshal(b []byte) (Event, error) {
	var e Event
	fields, err := pbwire.Fields(b)
	if err != nil {
		return e, fmt.Errorf("failed to decode event: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case eventWallTime:
			e.WallTime = timeutils.FromWallTime(f.Float64())
		case eventStep:
			e.Step = f.Int64()
		case eventFileVersion:
			e.FileVersion = f.Text()
		case eventSummary:
			values, err := unmarshalSummary(f.Bytes)
			if err != nil {
				return e, err
			}
			e.Summary = values
		}
	}
	return e, nil
}

func unmarshalSummary(b []byte) ([]SummaryValue, error) {
	fields, err := pbwire.Fields(b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}

	var values []SummaryValue
	for _, f := range fields {
		if f.Num != summaryValue {
			continue
		}
		v, err := unmarshalValue(f.Bytes)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func unmarshalValue(b []byte) (SummaryValue, error) {
	var v SummaryValue
	fields, err := pbwire.Fields(b)
	if err != nil {
		return v, fmt.Errorf("failed to decode summary value: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case valueTag:
			v.Tag = f.Text()
		case valueSimpleValue:
			simple := float64(f.Float32())
			v.SimpleValue = &simple
		case valueTensor:
			t, err := unmarshalTensor(f.Bytes)
			if err != nil {
				return v, err
			}
			v.Tensor = t
		case valueMetadata:
			if err := v.unmarshalMetadata(f.Bytes); err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

func (v *SummaryValue) unmarshalMetadata(b []byte) error {
	fields, err := pbwire.Fields(b)
	if err != nil {
		return fmt.Errorf("failed to decode summary metadata: %w", err)
	}

	for _, f := range fields {
		if f.Num != metadataPluginData {
			continue
		}
		plugin, err := pbwire.Fields(f.Bytes)
		if err != nil {
			return fmt.Errorf("failed to decode plugin data: %w", err)
		}
		for _, p := range plugin {
			switch p.Num {
			case pluginName:
				v.PluginName = p.Text()
			case pluginContent:
				v.PluginContent = p.Bytes
			}
		}
	}
	return nil
}

func unmarshalTensor(b []byte) (*Tensor, error) {
	fields, err := pbwire.Fields(b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tensor: %w", err)
	}

	t := &Tensor{}
	for _, f := range fields {
		switch f.Num {
		case tensorDType:
			t.DType = DType(f.Varint)
		case tensorContent:
			t.Content = f.Bytes
		case tensorFloat:
			t.FloatVal = append(t.FloatVal, f.Floats()...)
		case tensorDouble:
			t.DoubleVal = append(t.DoubleVal, f.Doubles()...)
		}
	}
	return t, nil
}
