package kinematics

import (
	"math"

	"ucnc/settings"
)

// Cartesian implements 1:1 axis-to-actuator kinematics, generalized from
// original_source/uCNC's kinematic_cartesian.c to an arbitrary AxisCount
// (the original is hard-coded to the build's #if AXIS_COUNT ladder).
type Cartesian struct {
	s *settings.Settings
}

// NewCartesian builds a Cartesian kinematics bound to s. s.Descriptor must
// already have been validated (settings.Load/Descriptor.Validate do this).
func NewCartesian(s *settings.Settings) *Cartesian {
	return &Cartesian{s: s}
}

func (k *Cartesian) AxisCount() int    { return k.s.Descriptor.AxisCount }
func (k *Cartesian) StepperCount() int { return k.s.Descriptor.StepperCount }
func (k *Cartesian) NonLinear() bool   { return false }
func (k *Cartesian) SegmentFactor() float64 { return 0 }

// Inverse: steps[i] = round(step_per_mm[i] * axis[i]), rounding half away
// from zero (lroundf's behaviour in the original C), which is what keeps
// the round-trip identity I1 within one ULP per axis.
func (k *Cartesian) Inverse(axis []float64) []int32 {
	steps := make([]int32, k.StepperCount())
	for i := range steps {
		v := 0.0
		if i < len(axis) {
			v = axis[i]
		}
		steps[i] = int32(roundHalfAwayFromZero(k.s.StepPerMM[i] * v))
	}
	return steps
}

func (k *Cartesian) Forward(steps []int32) []float64 {
	axis := make([]float64, k.AxisCount())
	for i := range axis {
		axis[i] = float64(steps[i]) / k.s.StepPerMM[i]
	}
	return axis
}

// Transform applies the original's optional skew compensation: X is
// corrected for Y (and, unless XY-only, for Z too), Y for Z.
func (k *Cartesian) Transform(axis []float64) {
	if !k.s.SkewCompensation || len(axis) < 2 {
		return
	}
	const ax, ay, az = 0, 1, 2
	axis[ax] -= axis[ay] * k.s.SkewXY
	if len(axis) > az {
		axis[ax] -= axis[az] * (k.s.SkewXZ - k.s.SkewXY*k.s.SkewYZ)
		axis[ay] -= axis[az] * k.s.SkewYZ
	}
}

func (k *Cartesian) ReverseTransform(axis []float64) {
	if !k.s.SkewCompensation || len(axis) < 2 {
		return
	}
	const ax, ay, az = 0, 1, 2
	axis[ax] += axis[ay] * k.s.SkewXY
	if len(axis) > az {
		axis[ax] += axis[az] * k.s.SkewXZ
		axis[ay] += axis[az] * k.s.SkewYZ
	}
}

// CheckBoundaries reproduces kinematic_cartesian.c's kinematics_check_boundaries:
// soft limits disabled or the machine homing bypasses the check entirely;
// otherwise each axis value (mirrored around the home direction when the
// origin sits at the home position) must land in [0, max_distance[i]].
func (k *Cartesian) CheckBoundaries(axis []float64, homing bool) bool {
	if !k.s.SoftLimitsEnabled || homing {
		return true
	}
	for i := 0; i < len(axis) && i < len(k.s.MaxDistance); i++ {
		value := axis[i]
		if k.s.OriginAtHomePos {
			if k.s.HomingDirInvertMask&(1<<uint(i)) == 0 {
				value = -axis[i]
			}
		}
		if value > k.s.MaxDistance[i] || value < 0 {
			return false
		}
	}
	return true
}

// HomingOrder homes Z first, then X, Y, then the remaining axes A, B, C in
// that order, skipping any axis past AxisCount.
func (k *Cartesian) HomingOrder() []int {
	preferred := []int{2, 0, 1, 3, 4, 5}
	order := make([]int, 0, k.AxisCount())
	for _, i := range preferred {
		if i < k.AxisCount() {
			order = append(order, i)
		}
	}
	return order
}

// ZeroPosition returns the user-space position the controller should adopt
// once every axis has homed: the origin, or max_distance[i] for axes whose
// homing direction is inverted, per settings.OriginAtHomePos.
func (k *Cartesian) ZeroPosition() []float64 {
	out := make([]float64, k.AxisCount())
	if k.s.OriginAtHomePos {
		return out
	}
	for i := range out {
		if k.s.HomingDirInvertMask&(1<<uint(i)) != 0 && i < len(k.s.MaxDistance) {
			out[i] = k.s.MaxDistance[i]
		}
	}
	return out
}

// HomingOffset returns +HomingOffset per axis, negated on axes
// HomingDirInvertMask inverts, matching kinematics_home's post-loop offset
// move.
func (k *Cartesian) HomingOffset() []float64 {
	out := make([]float64, k.AxisCount())
	for i := range out {
		out[i] = k.s.HomingOffset
		if k.s.HomingDirInvertMask&(1<<uint(i)) != 0 {
			out[i] = -out[i]
		}
	}
	return out
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return math.Ceil(v - 0.5)
}
