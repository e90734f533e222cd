package main

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/emptools/empfile"
	"github.com/emptools/empfile/emp"
	"golang.org/x/crypto/blake2b"
)

// KeyframeLen identifies an animated parameter by the node it belongs to.
type KeyframeLen struct {
	Node      string
	Parameter uint8
	Component uint8
	Length    int
}

// KeyframeLenList holds the parameters with the most keyframes.
type KeyframeLenList []KeyframeLen

func (l KeyframeLenList) MarshalJSON() ([]byte, error) {
	list := append([]KeyframeLen{}, l...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Length > list[j].Length
	})
	if len(list) > 20 {
		list = list[:20]
	}
	return json.Marshal(list)
}

type Stats struct {
	Version string
	Size    int

	// BLAKE2b-256 of the input.
	Checksum string
	// BLAKE2b-256 of the document re-encoded. Equal to Checksum when the
	// document round-trips.
	Fingerprint string `json:",omitempty"`
	RoundTrip   bool
	// Error from re-encoding the document, if any.
	EncodeError string `json:",omitempty"`

	// Number of nodes overall, and per kind.
	NodeCount int
	KindCount map[string]int

	EmitterCount  map[string]int `json:",omitempty"`
	EmissionCount map[string]int `json:",omitempty"`
	ModifierCount map[string]int `json:",omitempty"`

	// Number of compiled animated parameters and their keyframes.
	ParameterCount int
	KeyframeCount  int

	SamplerCount int
	ScrollCount  map[string]int `json:",omitempty"`

	// Texture slots that refer to samplers outside of the document.
	DanglingSlots []string `json:",omitempty"`
	// Samplers not referred to by any texture slot.
	UnusedSamplers []int `json:",omitempty"`

	Warnings []string `json:",omitempty"`

	LargestParameters KeyframeLenList `json:",omitempty"`
}

func checksum(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Fill computes the stats of doc, which was decoded from data.
func (s *Stats) Fill(data []byte, doc *empfile.Document) {
	s.Size = len(data)
	s.Checksum = checksum(data)
	if doc == nil {
		return
	}
	s.Version = doc.Version.String()

	if b, err := emp.Serialize(doc); err != nil {
		s.EncodeError = err.Error()
	} else {
		s.Fingerprint = checksum(b)
		s.RoundTrip = s.Fingerprint == s.Checksum
	}

	s.NodeCount = 0
	s.KindCount = map[string]int{}
	s.EmitterCount = map[string]int{}
	s.EmissionCount = map[string]int{}
	s.ModifierCount = map[string]int{}
	s.ParameterCount = 0
	s.KeyframeCount = 0
	s.LargestParameters = nil
	doc.Walk(func(node, _ *empfile.Node, owner empfile.EmitterShape) bool {
		s.NodeCount++
		s.KindCount[node.Kind().String()]++
		if e := node.Emitter(); e != nil {
			s.EmitterCount[e.Shape().String()]++
		}
		if e := node.Emission(); e != nil {
			s.EmissionCount[e.EmissionKind().String()]++
		}

		params, _ := node.CompileParameters(owner)
		for _, m := range node.Modifiers {
			s.ModifierCount[m.Type.String()]++
			mparams, _ := m.CompileParameters()
			params = append(params, mparams...)
		}
		s.ParameterCount += len(params)
		for _, p := range params {
			s.KeyframeCount += len(p.Keyframes)
			s.LargestParameters = append(s.LargestParameters, KeyframeLen{
				Node:      doc.FullName(node),
				Parameter: p.Parameter,
				Component: p.Component,
				Length:    len(p.Keyframes),
			})
		}
		return true
	})

	s.SamplerCount = len(doc.Samplers)
	s.ScrollCount = map[string]int{}
	s.UnusedSamplers = nil
	for i, smp := range doc.Samplers {
		s.ScrollCount[smp.ScrollType().String()]++
		if len(doc.SamplerRefs(smp)) == 0 {
			s.UnusedSamplers = append(s.UnusedSamplers, i)
		}
	}

	s.DanglingSlots = nil
	for _, ref := range doc.DanglingSamplers() {
		s.DanglingSlots = append(s.DanglingSlots, doc.FullName(ref.Node)+"["+strconv.Itoa(ref.Slot)+"]")
	}
}
