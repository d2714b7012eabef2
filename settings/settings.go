// Package settings holds the machine parameters the motion-control core
// treats as read-only: steps-per-mm, travel limits, backlash, arc tolerance,
// homing rates and the rest. It is adapted from the standalone/config
// package -- JSON in, a defaulting pass, done -- generalized from a fixed
// XYZE 3D-printer axis set to a runtime-configured axis/actuator descriptor.
package settings

import "encoding/json"

// Descriptor fixes the shape of the machine: how many user axes it has and
// how many physical actuators those axes drive. AxisCount == StepperCount on
// a Cartesian machine; they differ on delta/corexy kinematics, where several
// actuators move per axis change. This is the runtime-configured stand-in
// the design notes call for in place of the original firmware's compile-time
// #if AXIS_COUNT ladders.
type Descriptor struct {
	AxisCount    int      `json:"axis_count"`
	StepperCount int      `json:"stepper_count"`
	AxisNames    []string `json:"axis_names,omitempty"`
}

// axisLetters gives the conventional names for the first six axes, in the
// order the axis-letter convention lists them.
var axisLetters = []string{"X", "Y", "Z", "A", "B", "C"}

// Validate checks AxisCount/StepperCount fall inside the configured bounds and
// fills in AxisNames from the conventional letters when not supplied.
func (d *Descriptor) Validate() error {
	if d.AxisCount < 1 || d.AxisCount > 6 {
		return errOutOfRange("axis_count", d.AxisCount, 1, 6)
	}
	if d.StepperCount < 1 {
		return errOutOfRange("stepper_count", d.StepperCount, 1, 64)
	}
	if len(d.AxisNames) == 0 {
		d.AxisNames = append([]string(nil), axisLetters[:d.AxisCount]...)
	}
	if len(d.AxisNames) != d.AxisCount {
		return errMismatch(len(d.AxisNames), d.AxisCount)
	}
	return nil
}

// Settings is the full read-only configuration blob consumed by kinematics,
// the planner and the motion controller. All slices are indexed by actuator
// (StepperCount entries) unless noted otherwise.
type Settings struct {
	Descriptor Descriptor `json:"descriptor"`

	StepPerMM    []float64 `json:"step_per_mm"`    // actuator-indexed
	MaxDistance  []float64 `json:"max_distance"`   // axis-indexed soft travel envelope
	BacklashSteps []int32  `json:"backlash_steps"` // actuator-indexed

	ArcTolerance float64 `json:"arc_tolerance"`

	HomingFastFeedRate  float64 `json:"homing_fast_feed_rate"`
	HomingSlowFeedRate  float64 `json:"homing_slow_feed_rate"`
	HomingOffset        float64 `json:"homing_offset"`
	HomingDirInvertMask uint8   `json:"homing_dir_invert_mask"`
	DebounceMillis      uint32  `json:"debounce_ms"`

	SoftLimitsEnabled bool `json:"soft_limits_enabled"`
	OriginAtHomePos   bool `json:"origin_at_home_pos"`

	LaserMode      bool    `json:"laser_mode"`
	SpindleMaxRPM  float64 `json:"spindle_max_rpm"`

	// Optional axis skew compensation, applied by kinematics.Cartesian's
	// Transform/ReverseTransform pair (see original_source's
	// ENABLE_SKEW_COMPENSATION). Zero values make the pair an identity.
	SkewCompensation bool    `json:"skew_compensation"`
	SkewXY           float64 `json:"skew_xy"`
	SkewXZ           float64 `json:"skew_xz"`
	SkewYZ           float64 `json:"skew_yz"`
}

// Load parses JSON configuration data and applies defaults for anything left
// zero-valued, mirroring config.LoadConfig/applyDefaults.
func Load(data []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Descriptor.Validate(); err != nil {
		return nil, err
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	n := s.Descriptor.StepperCount
	a := s.Descriptor.AxisCount

	if len(s.StepPerMM) < n {
		s.StepPerMM = growFloat(s.StepPerMM, n, 80.0)
	}
	if len(s.BacklashSteps) < n {
		s.BacklashSteps = growInt32(s.BacklashSteps, n, 0)
	}
	if len(s.MaxDistance) < a {
		s.MaxDistance = growFloat(s.MaxDistance, a, 200.0)
	}
	if s.ArcTolerance <= 0 {
		s.ArcTolerance = 0.002
	}
	if s.HomingFastFeedRate <= 0 {
		s.HomingFastFeedRate = 1000
	}
	if s.HomingSlowFeedRate <= 0 {
		s.HomingSlowFeedRate = 100
	}
	if s.DebounceMillis == 0 {
		s.DebounceMillis = 50
	}
}

func growFloat(v []float64, n int, fill float64) []float64 {
	out := make([]float64, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = fill
	}
	return out
}

func growInt32(v []int32, n int, fill int32) []int32 {
	out := make([]int32, n)
	copy(out, v)
	for i := len(v); i < n; i++ {
		out[i] = fill
	}
	return out
}

// Default returns a small, fully-populated Cartesian 3-axis configuration,
// handy for tests and for the console demo -- the equivalent of the
// config.DefaultCartesianConfig.
func Default() *Settings {
	s := &Settings{
		Descriptor: Descriptor{AxisCount: 3, StepperCount: 3, AxisNames: []string{"X", "Y", "Z"}},
		StepPerMM:  []float64{100, 100, 100},
		MaxDistance: []float64{200, 200, 100},
		BacklashSteps: []int32{0, 0, 0},
		ArcTolerance: 0.002,
		HomingFastFeedRate: 1000,
		HomingSlowFeedRate: 100,
		HomingOffset: 2,
		DebounceMillis: 50,
		SoftLimitsEnabled: true,
	}
	return s
}
