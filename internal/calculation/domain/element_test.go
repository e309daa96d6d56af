package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVolume_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`1.5`, 1.5},
		{`"2.25"`, 2.25},
		{`" 3 "`, 3},
		{`"abc"`, 0},
		{`null`, 0},
		{`true`, 0},
	}
	for _, c := range cases {
		var v Volume
		if err := json.Unmarshal([]byte(c.in), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		if v.Value() != c.want {
			t.Fatalf("volume %s: got %v, want %v", c.in, v.Value(), c.want)
		}
	}
}

func TestMaterialEntry_UnmarshalJSON_NonStringName(t *testing.T) {
	var entry MaterialEntry
	if err := json.Unmarshal([]byte(`{"name": 42, "volume": "1.0"}`), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Name != "" {
		t.Fatalf("non-string name should be empty, got %q", entry.Name)
	}
	if entry.Volume.Value() != 1.0 {
		t.Fatalf("volume: got %v, want 1.0", entry.Volume.Value())
	}
}

func TestElementRecord_OutputID_FallbackChain(t *testing.T) {
	element := ElementRecord{ID: "internal", GlobalID: "global", IfcID: "ifc"}
	if got := element.OutputID(); got != "global" {
		t.Fatalf("got %q, want global id", got)
	}
	element.GlobalID = ""
	if got := element.OutputID(); got != "ifc" {
		t.Fatalf("got %q, want ifc id", got)
	}
	element.IfcID = ""
	if got := element.OutputID(); got != "internal" {
		t.Fatalf("got %q, want internal id", got)
	}
	element.ID = ""
	got := element.OutputID()
	if !strings.HasPrefix(got, "unknown_element_") || len(got) == len("unknown_element_") {
		t.Fatalf("placeholder id: got %q", got)
	}
}
