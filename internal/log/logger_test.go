package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWithComponent_fields(t *testing.T) {
	Reset()
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test-svc"})
	t.Cleanup(Reset)

	l := WithComponent("registry")
	l.Info().Str(FieldChannel, "CCTV1").Msg("inserted")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if got[FieldService] != "test-svc" {
		t.Errorf("service = %v, want test-svc", got[FieldService])
	}
	if got[FieldComponent] != "registry" {
		t.Errorf("component = %v, want registry", got[FieldComponent])
	}
	if got[FieldChannel] != "CCTV1" {
		t.Errorf("channel = %v, want CCTV1", got[FieldChannel])
	}
}

func TestConfigure_onlyFirstCallApplies(t *testing.T) {
	Reset()
	var first, second bytes.Buffer
	Configure(Config{Output: &first})
	Configure(Config{Output: &second})
	t.Cleanup(Reset)

	l := Base()
	l.Info().Msg("hello")
	if first.Len() == 0 {
		t.Error("first writer should receive output")
	}
	if second.Len() != 0 {
		t.Error("second Configure must not replace the logger")
	}
}
