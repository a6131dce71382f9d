package hparams

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/imishinist/mlflow-hparams/internal/models"
	"github.com/imishinist/mlflow-hparams/internal/pbwire"
	timeutils "github.com/imishinist/mlflow-hparams/internal/time"
)

// Field numbers from the TensorBoard hparams plugin protos
// (plugin_data.proto and api.proto).
const (
	dataVersion      protowire.Number = 1
	dataExperiment   protowire.Number = 2
	dataSessionStart protowire.Number = 3
	dataSessionEnd   protowire.Number = 4

	experimentDescription protowire.Number = 1
	experimentUser        protowire.Number = 2
	experimentTimeCreated protowire.Number = 3
	experimentHParamInfos protowire.Number = 4
	experimentMetricInfos protowire.Number = 5
	experimentName        protowire.Number = 6

	hparamName           protowire.Number = 1
	hparamDisplayName    protowire.Number = 2
	hparamDescription    protowire.Number = 3
	hparamType           protowire.Number = 4
	hparamDomainDiscrete protowire.Number = 5
	hparamDomainInterval protowire.Number = 6

	intervalMin protowire.Number = 1
	intervalMax protowire.Number = 2

	metricName        protowire.Number = 1
	metricDisplayName protowire.Number = 3
	metricDescription protowire.Number = 4
	metricDatasetType protowire.Number = 5

	metricNameGroup protowire.Number = 1
	metricNameTag   protowire.Number = 2

	startHParams    protowire.Number = 1
	startModelURI   protowire.Number = 2
	startMonitorURL protowire.Number = 3
	startGroupName  protowire.Number = 4
	startTimeSecs   protowire.Number = 5

	endStatus   protowire.Number = 1
	endTimeSecs protowire.Number = 2

	mapKey   protowire.Number = 1
	mapValue protowire.Number = 2
)

// PluginData is a decoded HParamsPluginData message. Exactly one of the
// pointers is set.
type PluginData struct {
	Version      int32
	Experiment   *models.ExperimentSummary
	SessionStart *models.SessionStart
	SessionEnd   *models.SessionEnd
}

func pluginData(field protowire.Number, msg []byte) []byte {
	var b []byte
	b = pbwire.AppendVarint(b, dataVersion, pluginDataVersion)
	return pbwire.AppendMessage(b, field, msg)
}

// EncodeExperiment serializes the summary as HParamsPluginData content.
func EncodeExperiment(s models.ExperimentSummary) ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, experimentDescription, s.Description)
	b = pbwire.AppendString(b, experimentUser, s.User)
	b = pbwire.AppendDouble(b, experimentTimeCreated, timeutils.WallTime(s.TimeCreated))
	for _, info := range s.HParamInfos {
		msg, err := encodeHParamInfo(info)
		if err != nil {
			return nil, err
		}
		b = pbwire.AppendMessage(b, experimentHParamInfos, msg)
	}
	for _, info := range s.MetricInfos {
		b = pbwire.AppendMessage(b, experimentMetricInfos, encodeMetricInfo(info))
	}
	b = pbwire.AppendString(b, experimentName, s.Name)
	return pluginData(dataExperiment, b), nil
}

func encodeHParamInfo(info models.HParamInfo) ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, hparamName, info.Name)
	b = pbwire.AppendString(b, hparamDisplayName, info.DisplayName)
	b = pbwire.AppendString(b, hparamDescription, info.Description)
	b = pbwire.AppendVarint(b, hparamType, uint64(info.Type))

	switch {
	case info.Interval != nil:
		var interval []byte
		interval = pbwire.AppendDouble(interval, intervalMin, info.Interval.Min)
		interval = pbwire.AppendDouble(interval, intervalMax, info.Interval.Max)
		b = pbwire.AppendMessage(b, hparamDomainInterval, interval)
	case info.Domain != nil:
		list, err := structpb.NewList(info.Domain)
		if err != nil {
			return nil, fmt.Errorf("invalid domain for hparam %s: %w", info.Name, err)
		}
		msg, err := proto.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("failed to encode domain for hparam %s: %w", info.Name, err)
		}
		b = pbwire.AppendMessage(b, hparamDomainDiscrete, msg)
	}
	return b, nil
}

func encodeMetricInfo(info models.MetricInfo) []byte {
	var name []byte
	name = pbwire.AppendString(name, metricNameGroup, info.Group)
	name = pbwire.AppendString(name, metricNameTag, info.Tag)

	var b []byte
	b = pbwire.AppendMessage(b, metricName, name)
	b = pbwire.AppendString(b, metricDisplayName, info.DisplayName)
	b = pbwire.AppendString(b, metricDescription, info.Description)
	b = pbwire.AppendVarint(b, metricDatasetType, uint64(info.DatasetType))
	return b
}

// EncodeSessionStart serializes a session start. Hyperparameters are written
// in key order so equal inputs give equal bytes.
func EncodeSessionStart(s models.SessionStart) ([]byte, error) {
	keys := make([]string, 0, len(s.HParams))
	for k := range s.HParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	for _, k := range keys {
		value, err := structpb.NewValue(s.HParams[k])
		if err != nil {
			return nil, fmt.Errorf("invalid value for hparam %s: %w", k, err)
		}
		msg, err := proto.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode hparam %s: %w", k, err)
		}

		var entry []byte
		entry = pbwire.AppendString(entry, mapKey, k)
		entry = pbwire.AppendMessage(entry, mapValue, msg)
		b = pbwire.AppendMessage(b, startHParams, entry)
	}
	b = pbwire.AppendString(b, startModelURI, s.ModelURI)
	b = pbwire.AppendString(b, startMonitorURL, s.MonitorURL)
	b = pbwire.AppendString(b, startGroupName, s.GroupName)
	b = pbwire.AppendDouble(b, startTimeSecs, timeutils.WallTime(s.StartTime))
	return pluginData(dataSessionStart, b), nil
}

func EncodeSessionEnd(s models.SessionEnd) []byte {
	var b []byte
	b = pbwire.AppendVarint(b, endStatus, uint64(s.Status))
	b = pbwire.AppendDouble(b, endTimeSecs, timeutils.WallTime(s.EndTime))
	return pluginData(dataSessionEnd, b)
}

// DecodePluginData parses HParamsPluginData content.
func DecodePluginData(b []byte) (PluginData, error) {
	var data PluginData
	fields, err := pbwire.Fields(b)
	if err != nil {
		return data, fmt.Errorf("failed to decode hparams plugin data: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case dataVersion:
			data.Version = int32(f.Varint)
		case dataExperiment:
			exp, err := decodeExperiment(f.Bytes)
			if err != nil {
				return data, err
			}
			data.Experiment = &exp
		case dataSessionStart:
			start, err := decodeSessionStart(f.Bytes)
			if err != nil {
				return data, err
			}
			data.SessionStart = &start
		case dataSessionEnd:
			end, err := decodeSessionEnd(f.Bytes)
			if err != nil {
				return data, err
			}
			data.SessionEnd = &end
		}
	}
	return data, nil
}

func decodeExperiment(b []byte) (models.ExperimentSummary, error) {
	var s models.ExperimentSummary
	fields, err := pbwire.Fields(b)
	if err != nil {
		return s, fmt.Errorf("failed to decode experiment: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case experimentDescription:
			s.Description = f.Text()
		case experimentUser:
			s.User = f.Text()
		case experimentTimeCreated:
			s.TimeCreated = timeutils.FromWallTime(f.Float64())
		case experimentHParamInfos:
			info, err := decodeHParamInfo(f.Bytes)
			if err != nil {
				return s, err
			}
			s.HParamInfos = append(s.HParamInfos, info)
		case experimentMetricInfos:
			info, err := decodeMetricInfo(f.Bytes)
			if err != nil {
				return s, err
			}
			s.MetricInfos = append(s.MetricInfos, info)
		case experimentName:
			s.Name = f.Text()
		}
	}
	return s, nil
}

func decodeHParamInfo(b []byte) (models.HParamInfo, error) {
	var info models.HParamInfo
	fields, err := pbwire.Fields(b)
	if err != nil {
		return info, fmt.Errorf("failed to decode hparam info: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case hparamName:
			info.Name = f.Text()
		case hparamDisplayName:
			info.DisplayName = f.Text()
		case hparamDescription:
			info.Description = f.Text()
		case hparamType:
			info.Type = models.DataType(f.Varint)
		case hparamDomainDiscrete:
			list := &structpb.ListValue{}
			if err := proto.Unmarshal(f.Bytes, list); err != nil {
				return info, fmt.Errorf("failed to decode domain of hparam %s: %w", info.Name, err)
			}
			info.Domain = list.AsSlice()
		case hparamDomainInterval:
			interval, err := pbwire.Fields(f.Bytes)
			if err != nil {
				return info, fmt.Errorf("failed to decode interval of hparam %s: %w", info.Name, err)
			}
			info.Interval = &models.Interval{}
			for _, i := range interval {
				switch i.Num {
				case intervalMin:
					info.Interval.Min = i.Float64()
				case intervalMax:
					info.Interval.Max = i.Float64()
				}
			}
		}
	}
	return info, nil
}

func decodeMetricInfo(b []byte) (models.MetricInfo, error) {
	var info models.MetricInfo
	fields, err := pbwire.Fields(b)
	if err != nil {
		return info, fmt.Errorf("failed to decode metric info: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case metricName:
			name, err := pbwire.Fields(f.Bytes)
			if err != nil {
				return info, fmt.Errorf("failed to decode metric name: %w", err)
			}
			for _, n := range name {
				switch n.Num {
				case metricNameGroup:
					info.Group = n.Text()
				case metricNameTag:
					info.Tag = n.Text()
				}
			}
		case metricDisplayName:
			info.DisplayName = f.Text()
		case metricDescription:
			info.Description = f.Text()
		case metricDatasetType:
			info.DatasetType = models.DatasetType(f.Varint)
		}
	}
	return info, nil
}

func decodeSessionStart(b []byte) (models.SessionStart, error) {
	s := models.SessionStart{HParams: make(map[string]any)}
	fields, err := pbwire.Fields(b)
	if err != nil {
		return s, fmt.Errorf("failed to decode session start: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case startHParams:
			key, value, err := decodeHParamEntry(f.Bytes)
			if err != nil {
				return s, err
			}
			s.HParams[key] = value
		case startModelURI:
			s.ModelURI = f.Text()
		case startMonitorURL:
			s.MonitorURL = f.Text()
		case startGroupName:
			s.GroupName = f.Text()
		case startTimeSecs:
			s.StartTime = timeutils.FromWallTime(f.Float64())
		}
	}
	return s, nil
}

func decodeHParamEntry(b []byte) (string, any, error) {
	fields, err := pbwire.Fields(b)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode hparam entry: %w", err)
	}

	var key string
	value := &structpb.Value{}
	for _, f := range fields {
		switch f.Num {
		case mapKey:
			key = f.Text()
		case mapValue:
			if err := proto.Unmarshal(f.Bytes, value); err != nil {
				return "", nil, fmt.Errorf("failed to decode value of hparam %s: %w", key, err)
			}
		}
	}
	return key, value.AsInterface(), nil
}

func decodeSessionEnd(b []byte) (models.SessionEnd, error) {
	var s models.SessionEnd
	fields, err := pbwire.Fields(b)
	if err != nil {
		return s, fmt.Errorf("failed to decode session end: %w", err)
	}

	for _, f := range fields {
		switch f.Num {
		case endStatus:
			s.Status = models.SessionStatus(f.Varint)
		case endTimeSecs:
			s.EndTime = timeutils.FromWallTime(f.Float64())
		}
	}
	return s, nil
}
