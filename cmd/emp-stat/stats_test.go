package main

import (
	"encoding/json"
	"testing"

	"github.com/emptools/empfile"
	. "github.com/emptools/empfile/declare"
	"github.com/emptools/empfile/emp"
)

func testFile(t *testing.T) []byte {
	t.Helper()
	doc := Root{
		Sampler("Used"),
		Sampler("Unused", ConstantScroll(0.5, 0)),
		Node("Cone", Emitter(empfile.ShapeCone),
			Node("Fade", Emission(empfile.EmissionDefault),
				Property("Lifetime", 30),
				Slot(0, "Used"),
				Track(empfile.FieldColor1Alpha, Key(0, 1), Key(10, 0.5), Key(29, 0)),
				Modifier(empfile.ModifierAcceleration,
					Track(empfile.FieldAxisY, Key(0, -1), Key(5, 0)),
				),
			),
		),
		Node("Group"),
	}.Declare()
	data, err := emp.Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return data
}

func TestStatsFill(t *testing.T) {
	data := testFile(t)
	doc, err := emp.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var stats Stats
	stats.Fill(data, doc)

	if stats.Size != len(data) {
		t.Errorf("expected size %d, got %d", len(data), stats.Size)
	}
	if stats.Version != "Xenoverse2" {
		t.Errorf("expected version Xenoverse2, got %s", stats.Version)
	}
	if !stats.RoundTrip || stats.Fingerprint != stats.Checksum {
		t.Errorf("expected round trip, got checksum %s, fingerprint %s", stats.Checksum, stats.Fingerprint)
	}
	if stats.NodeCount != 3 {
		t.Errorf("expected 3 nodes, got %d", stats.NodeCount)
	}
	if n := stats.KindCount["Emission"]; n != 1 {
		t.Errorf("expected 1 emission, got %d", n)
	}
	if n := stats.EmitterCount["Cone"]; n != 1 {
		t.Errorf("expected 1 cone emitter, got %d", n)
	}
	if n := stats.ModifierCount["Acceleration"]; n != 1 {
		t.Errorf("expected 1 acceleration modifier, got %d", n)
	}
	if stats.ParameterCount != 2 || stats.KeyframeCount != 5 {
		t.Errorf("expected 2 parameters with 5 keyframes, got %d with %d", stats.ParameterCount, stats.KeyframeCount)
	}
	if stats.SamplerCount != 2 || stats.ScrollCount["ConstantSpeed"] != 1 {
		t.Errorf("unexpected sampler stats %d %v", stats.SamplerCount, stats.ScrollCount)
	}
	if len(stats.UnusedSamplers) != 1 || stats.UnusedSamplers[0] != 1 {
		t.Errorf("expected sampler 1 to be unused, got %v", stats.UnusedSamplers)
	}
	if len(stats.DanglingSlots) != 0 {
		t.Errorf("expected no dangling slots, got %v", stats.DanglingSlots)
	}
}

func TestStatsDangling(t *testing.T) {
	data := testFile(t)
	doc, err := emp.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.Samplers = doc.Samplers[1:]

	var stats Stats
	stats.Fill(data, doc)
	if len(stats.DanglingSlots) != 1 || stats.DanglingSlots[0] != "Cone.Fade[0]" {
		t.Errorf("expected dangling slot Cone.Fade[0], got %v", stats.DanglingSlots)
	}
	if stats.RoundTrip || stats.EncodeError == "" {
		t.Errorf("expected encoding to fail")
	}
}

func TestLargestParameters(t *testing.T) {
	list := KeyframeLenList{
		{Node: "a", Length: 1},
		{Node: "b", Length: 3},
		{Node: "c", Length: 2},
	}
	b, err := list.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var got []KeyframeLen
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Node != "b" || got[1].Node != "c" || got[2].Node != "a" {
		t.Errorf("expected descending order, got %v", got)
	}
	if list[0].Node != "a" {
		t.Errorf("list was modified")
	}
}
