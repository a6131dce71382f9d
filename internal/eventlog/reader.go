package eventlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReadFile returns every event in one event file, including the version record.
func ReadFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event file %s: %w", path, err)
	}
	defer file.Close()

	return Read(file)
}

// Read decodes a stream of framed event records.
func Read(r io.Reader) ([]Event, error) {
	rr := newRecordReader(r)

	var events []Event
	for {
		data, err := rr.next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, err
		}

		e, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
}

// Files lists the event files of dir in name order.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), FilePrefix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadDir returns the events of every event file in dir, file by file.
// Files are ordered by the wall time of their version record so that records
// appended by separate processes within the same second replay in order;
// ties keep name order. Version records are dropped.
func ReadDir(dir string) ([]Event, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	type eventFile struct {
		created time.Time
		events  []Event
	}
	logs := make([]eventFile, 0, len(files))
	for _, path := range files {
		fileEvents, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		var created time.Time
		if len(fileEvents) > 0 {
			created = fileEvents[0].WallTime
		}
		logs = append(logs, eventFile{created: created, events: fileEvents})
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].created.Before(logs[j].created)
	})

	var events []Event
	for _, log := range logs {
		for _, e := range log.events {
			if e.FileVersion != "" {
				continue
			}
			events = append(events, e)
		}
	}
	return events, nil
}
