// Package kinematics implements C1: the pure, total coordinate
// transformations between user-space axes and actuator step counts. It is
// grounded on standalone/kinematics package (the Kinematics
// interface shape) and on original_source/uCNC's
// hal/kinematics/kinematic_cartesian.c (the actual transform/inverse/
// boundary-check formulas, which the distilled spec only describes in
// prose).
package kinematics

// Kinematics is the C1 contract the motion controller depends on. Every
// method is pure: no I/O, no hidden state, callers own all mutation.
type Kinematics interface {
	// Inverse maps a user-space target (AxisCount entries) to absolute
	// actuator step positions (StepperCount entries).
	Inverse(axis []float64) []int32

	// Forward is Inverse's inverse: actuator steps back to user axes.
	Forward(steps []int32) []float64

	// Transform applies orthogonality/skew compensation to axis in place.
	// Called after parsing, before the soft-limit check.
	Transform(axis []float64)

	// ReverseTransform undoes Transform. Transform/ReverseTransform must be
	// an involution pair modulo floating-point rounding.
	ReverseTransform(axis []float64)

	// CheckBoundaries reports whether axis lies within the configured
	// travel envelope. homing is true while the machine is in the HOMING
	// exec state, in which case the check always passes.
	CheckBoundaries(axis []float64, homing bool) bool

	// NonLinear reports whether this kinematics is a non-linear map
	// (e.g. delta), which forces the motion controller to fragment long
	// lines by SegmentFactor rather than by step count alone.
	NonLinear() bool

	// SegmentFactor is the DELTA_MOTION_SEGMENT_FACTOR equivalent: for
	// non-linear kinematics, a line of length line_dist is split into
	// ceil(line_dist * SegmentFactor) equal sub-segments. Meaningless
	// (and unused) when NonLinear() is false.
	SegmentFactor() float64

	// HomingOrder returns the axis indices in the order the motion
	// controller should home them (Cartesian: Z, X, Y, A, B, C, skipping
	// any axis absent from AxisCount).
	HomingOrder() []int

	// ZeroPosition returns the user-space position adopted once every
	// axis has homed (the origin when the origin sits at the home
	// position; otherwise max_distance[i] on axes whose homing direction
	// is inverted and 0 on the rest).
	ZeroPosition() []float64

	// HomingOffset returns the signed per-axis pull-off distance Home
	// applies once every axis has homed and before resetting the runtime
	// position: +HomingOffset normally, or -HomingOffset on axes
	// HomingDirInvertMask inverts, per
	// original_source/uCNC/src/hal/kinematics/kinematic_cartesian.c:
	// kinematics_home's post-loop offset move.
	HomingOffset() []float64

	// AxisCount/StepperCount report the dimensions this instance was
	// built for, so callers can size their buffers without importing
	// settings.
	AxisCount() int
	StepperCount() int
}
