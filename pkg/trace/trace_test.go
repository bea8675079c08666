package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_Emit(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "trv-1")

	if err := tw.EmitStart("trolley", "The Trolley", 3); err != nil {
		t.Fatalf("EmitStart: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(buf.Bytes(), &evt); err != nil {
		t.Fatalf("JSON unmarshal: %v (raw: %s)", err, buf.String())
	}
	if evt.Type != EventTraversalStart {
		t.Errorf("type = %q, want traversal_start", evt.Type)
	}
	if evt.TraversalID != "trv-1" {
		t.Errorf("traversal_id = %q", evt.TraversalID)
	}
	if evt.Data["scenario_id"] != "trolley" || evt.Data["total_steps"] != float64(3) {
		t.Errorf("data = %v", evt.Data)
	}
}

func TestWriter_NilIsNoop(t *testing.T) {
	var tw *Writer
	if err := tw.EmitAdvanced(1, 2); err != nil {
		t.Errorf("nil writer Emit = %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Errorf("nil writer Close = %v", err)
	}
}

func TestWriter_SubmittedSessionOptional(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "trv-1")

	tw.EmitSubmitted(1, 1, "a", nil)
	s := "s1"
	tw.EmitSubmitted(2, 2, "b", &s)

	var events []Event
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var evt Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("line %d: %v", len(events)+1, err)
		}
		events = append(events, evt)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if _, ok := events[0].Data["session_id"]; ok {
		t.Error("first submission should have no session_id")
	}
	if events[1].Data["session_id"] != "s1" {
		t.Errorf("session_id = %v", events[1].Data["session_id"])
	}
}

func TestWriter_Failure(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "trv-1")
	tw.EmitFailed(3, 2, errors.New("HTTP 502"))

	var evt Event
	json.Unmarshal(buf.Bytes(), &evt)
	if evt.Type != EventSubmissionFailed || evt.Data["error"] != "HTTP 502" {
		t.Errorf("event = %+v", evt)
	}
}

func TestWriter_CompleteDuration(t *testing.T) {
	var buf bytes.Buffer
	tw := NewWriter(&buf, "trv-1")
	tw.EmitComplete(2, "s1", 1500*time.Millisecond)

	var evt Event
	json.Unmarshal(buf.Bytes(), &evt)
	if evt.Data["duration"] != "1.5s" {
		t.Errorf("duration = %v", evt.Data["duration"])
	}
}

func TestNewFileWriter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	for i := 0; i < 2; i++ {
		tw, err := NewFileWriter(path, "trv-1")
		if err != nil {
			t.Fatal(err)
		}
		tw.EmitRestart(i)
		if err := tw.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(data, []byte("\n")); n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}
