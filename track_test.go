package empfile

import (
	"reflect"
	"testing"
)

func TestTrackAt(t *testing.T) {
	tr := Track{Value: 3}
	if v := tr.At(10); v != 3 {
		t.Errorf("static track: expected 3, got %g", v)
	}

	tr.SetKeyframe(10, 1)
	tr.SetKeyframe(0, 0)
	tr.SetKeyframe(20, 2)
	tr.Interpolate = true
	tests := []struct {
		frame uint16
		value float32
	}{
		{0, 0},
		{5, 0.5},
		{10, 1},
		{15, 1.5},
		{20, 2},
		{30, 2},
	}
	for _, test := range tests {
		if v := tr.At(test.frame); v != test.value {
			t.Errorf("frame %d: expected %g, got %g", test.frame, test.value, v)
		}
	}

	tr.Interpolate = false
	if v := tr.At(15); v != 1 {
		t.Errorf("held frame: expected 1, got %g", v)
	}
}

func TestTrackSetKeyframe(t *testing.T) {
	var tr Track
	tr.SetKeyframe(5, 1)
	tr.SetKeyframe(1, 2)
	tr.SetKeyframe(5, 3)
	want := []Keyframe{{1, 2}, {5, 3}}
	if !reflect.DeepEqual(tr.Keyframes, want) {
		t.Errorf("unexpected keyframes (expected %v, got %v)", want, tr.Keyframes)
	}
	if !tr.RemoveKeyframe(1) || tr.RemoveKeyframe(1) {
		t.Errorf("unexpected result of RemoveKeyframe")
	}
	if len(tr.Keyframes) != 1 {
		t.Errorf("unexpected keyframes after removal: %v", tr.Keyframes)
	}
}

func TestClipKeyframes(t *testing.T) {
	tests := []struct {
		name        string
		keys        []Keyframe
		duration    uint16
		loop        bool
		interpolate bool
		want        []Keyframe
	}{
		{
			name:     "empty",
			keys:     nil,
			duration: 10,
			want:     []Keyframe{},
		},
		{
			name:     "zero duration sorts",
			keys:     []Keyframe{{5, 1}, {0, 0}},
			duration: 0,
			want:     []Keyframe{{0, 0}, {5, 1}},
		},
		{
			name:        "synthesized interpolated",
			keys:        []Keyframe{{0, 0}, {20, 1}},
			duration:    10,
			interpolate: true,
			want:        []Keyframe{{0, 0}, {9, float32(9) / 20}},
		},
		{
			name:     "synthesized held",
			keys:     []Keyframe{{0, 4}, {20, 1}},
			duration: 10,
			want:     []Keyframe{{0, 4}, {9, 4}},
		},
		{
			name:     "existing last frame",
			keys:     []Keyframe{{0, 0}, {9, 7}, {15, 1}},
			duration: 10,
			want:     []Keyframe{{0, 0}, {9, 7}},
		},
		{
			name:     "synthesized after last",
			keys:     []Keyframe{{2, 6}},
			duration: 10,
			want:     []Keyframe{{2, 6}, {9, 6}},
		},
		{
			name:     "short loop keeps final",
			keys:     []Keyframe{{0, 0}, {30, 5}},
			duration: 10,
			loop:     true,
			want:     []Keyframe{{0, 0}, {9, 0}, {10, 5}},
		},
		{
			name:     "long loop drops final",
			keys:     []Keyframe{{0, 0}, {300, 5}},
			duration: ShortLoopLimit,
			loop:     true,
			want:     []Keyframe{{0, 0}, {ShortLoopLimit - 1, 0}},
		},
		{
			name:     "within range",
			keys:     []Keyframe{{3, 1}, {0, 0}, {9, 2}},
			duration: 10,
			want:     []Keyframe{{0, 0}, {3, 1}, {9, 2}},
		},
	}
	for _, test := range tests {
		got := ClipKeyframes(test.keys, test.duration, test.loop, test.interpolate)
		if len(got) == 0 && len(test.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestClipKeyframesCopies(t *testing.T) {
	keys := []Keyframe{{5, 1}, {0, 0}}
	ClipKeyframes(keys, 3, false, true)
	if keys[0].Time != 5 {
		t.Errorf("input was modified")
	}
}
