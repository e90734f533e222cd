package empfile

import (
	"sort"
)

// Keyframe is a single time/value pair of an animated scalar. Time is in
// frames.
type Keyframe struct {
	Time  uint16
	Value float32
}

// AnimatedParameter is a compiled keyframe track, identified within its owner
// by the pair (Parameter, Component).
type AnimatedParameter struct {
	Parameter uint8
	Component uint8

	// Interpolate indicates whether values between keyframes are linearly
	// interpolated. Otherwise, the preceding value is held.
	Interpolate bool

	// Loop indicates whether the track restarts after its last keyframe.
	Loop bool

	// Default is the value stored in the parameter header.
	Default float32

	Keyframes []Keyframe
}

// Key returns the identifying pair of the parameter.
func (p AnimatedParameter) Key() ParameterKey {
	return ParameterKey{Parameter: p.Parameter, Component: p.Component}
}

// Copy returns a deep copy of the parameter.
func (p AnimatedParameter) Copy() AnimatedParameter {
	p.Keyframes = copyKeyframes(p.Keyframes)
	return p
}

// ParameterKey identifies what an AnimatedParameter animates.
type ParameterKey struct {
	Parameter uint8
	Component uint8
}

// emptyParameter is shared by every decompiled track that has no compiled
// counterpart.
var emptyParameter = AnimatedParameter{Interpolate: true}

// Track is a decompiled animatable scalar. Value and Variance are stored in
// the owning record; the remaining fields are compiled into an
// AnimatedParameter when Keyframes is not empty.
type Track struct {
	Value    float32
	Variance float32

	Keyframes   []Keyframe
	Interpolate bool
	Loop        bool
	Default     float32
}

// Animated returns whether the track has keyframes.
func (t *Track) Animated() bool {
	return len(t.Keyframes) > 0
}

// At returns the value of the track at the given frame. A track without
// keyframes returns Value.
func (t *Track) At(frame uint16) float32 {
	if len(t.Keyframes) == 0 {
		return t.Value
	}
	return sampleKeyframes(t.Keyframes, frame, t.Interpolate)
}

// SetKeyframe inserts or replaces the keyframe at the given time, keeping
// keyframes ordered by time.
func (t *Track) SetKeyframe(time uint16, value float32) {
	i := sort.Search(len(t.Keyframes), func(i int) bool { return t.Keyframes[i].Time >= time })
	if i < len(t.Keyframes) && t.Keyframes[i].Time == time {
		t.Keyframes[i].Value = value
		return
	}
	t.Keyframes = append(t.Keyframes, Keyframe{})
	copy(t.Keyframes[i+1:], t.Keyframes[i:])
	t.Keyframes[i] = Keyframe{Time: time, Value: value}
}

// RemoveKeyframe removes the keyframe at the given time, returning whether
// it existed.
func (t *Track) RemoveKeyframe(time uint16) bool {
	for i, k := range t.Keyframes {
		if k.Time == time {
			t.Keyframes = append(t.Keyframes[:i], t.Keyframes[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Track) copy() Track {
	c := *t
	c.Keyframes = copyKeyframes(t.Keyframes)
	return c
}

// load replaces the keyframe data of the track with that of p.
func (t *Track) load(p *AnimatedParameter) {
	t.Keyframes = copyKeyframes(p.Keyframes)
	t.Interpolate = p.Interpolate
	t.Loop = p.Loop
	t.Default = p.Default
}

// clear resets the keyframe data of the track to the empty sentinel.
func (t *Track) clear() {
	t.load(&emptyParameter)
}

func (t *Track) compile(key ParameterKey) AnimatedParameter {
	return AnimatedParameter{
		Parameter:   key.Parameter,
		Component:   key.Component,
		Interpolate: t.Interpolate,
		Loop:        t.Loop,
		Default:     t.Default,
		Keyframes:   copyKeyframes(t.Keyframes),
	}
}

// Vector3Track is a 3-component animatable vector with per-axis variance.
type Vector3Track struct {
	X, Y, Z Track
}

func (v *Vector3Track) axis(i int) *Track {
	switch i {
	case 0:
		return &v.X
	case 1:
		return &v.Y
	case 2:
		return &v.Z
	}
	return nil
}

func (v *Vector3Track) copy() Vector3Track {
	return Vector3Track{X: v.X.copy(), Y: v.Y.copy(), Z: v.Z.copy()}
}

// Color is an animatable RGBA color. The alpha channel is animated
// independently of the color channels.
type Color struct {
	R, G, B, A Track
}

func (c *Color) copy() Color {
	return Color{R: c.R.copy(), G: c.G.copy(), B: c.B.copy(), A: c.A.copy()}
}

func copyKeyframes(keys []Keyframe) []Keyframe {
	if keys == nil {
		return nil
	}
	c := make([]Keyframe, len(keys))
	copy(c, keys)
	return c
}

// sampleKeyframes evaluates keys, which must be sorted by time, at frame. A
// frame before the first keyframe takes the first value, and a frame after
// the last keyframe holds the last value.
func sampleKeyframes(keys []Keyframe, frame uint16, interpolate bool) float32 {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > frame })
	if i == 0 {
		return keys[0].Value
	}
	prev := keys[i-1]
	if i == len(keys) || !interpolate || prev.Time == frame {
		return prev.Value
	}
	next := keys[i]
	f := float32(frame-prev.Time) / float32(next.Time-prev.Time)
	return prev.Value + (next.Value-prev.Value)*f
}

// ShortLoopLimit is the duration below which a looped track keeps its final
// out-of-range keyframe when clipped.
const ShortLoopLimit = 101

// ClipKeyframes fits keys to a track of the given duration, returning a new
// slice sorted by time.
//
// A keyframe is synthesized at duration-1 if none exists there, taking the
// interpolated (or held) value of the surrounding keyframes. Keyframes at or
// beyond duration are then removed, except that a looped track shorter than
// ShortLoopLimit keeps its final keyframe, moved to exactly duration.
//
// If duration is zero or keys is empty, a sorted copy of keys is returned.
func ClipKeyframes(keys []Keyframe, duration uint16, loop, interpolate bool) []Keyframe {
	sorted := copyKeyframes(keys)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	if duration == 0 || len(sorted) == 0 {
		return sorted
	}

	last := duration - 1
	exists := false
	for _, k := range sorted {
		if k.Time == last {
			exists = true
			break
		}
	}
	if !exists {
		v := sampleKeyframes(sorted, last, interpolate)
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Time > last })
		sorted = append(sorted, Keyframe{})
		copy(sorted[i+1:], sorted[i:])
		sorted[i] = Keyframe{Time: last, Value: v}
	}

	clipped := sorted[:0:0]
	for i, k := range sorted {
		if k.Time < duration {
			clipped = append(clipped, k)
			continue
		}
		if loop && duration < ShortLoopLimit && i == len(sorted)-1 {
			clipped = append(clipped, Keyframe{Time: duration, Value: k.Value})
		}
	}
	return clipped
}
