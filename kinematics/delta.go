package kinematics

import (
	"math"

	"ucnc/settings"
)

// Delta implements a classic three-tower linear-delta kinematics: X, Y, Z in
// user space map to three carriage heights (one per tower) in actuator
// space. Unlike Cartesian, Inverse/Forward are genuinely non-linear, which
// is why the motion controller fragments long delta moves by SegmentFactor
// (the KINEMATIC == DELTA branch) instead of relying on step-count alone.
//
// original_source does not include a delta implementation, so the tower
// geometry and the forward trilateration below follow the standard
// closed-form delta kinematics used across RepRap-derived firmwares (Marlin,
// RepRapFirmware), not a µCNC-specific formula.
type Delta struct {
	s *settings.Settings

	// RodLength is the diagonal rod length; TowerRadius is the horizontal
	// distance from the center column to each tower's effective pivot.
	RodLength   float64
	TowerRadius float64

	// segmentFactor is DELTA_MOTION_SEGMENT_FACTOR: sub-segments per mm of
	// travel, chosen so a 200mm/s move still fragments into sub-millimeter
	// pieces; tune per machine.
	segmentFactor float64

	towerX, towerY [3]float64
}

// NewDelta builds a Delta kinematics. AxisCount/StepperCount must both be 3
// in s.Descriptor (one carriage per tower, driven by X/Y/Z).
func NewDelta(s *settings.Settings, rodLength, towerRadius float64) *Delta {
	d := &Delta{s: s, RodLength: rodLength, TowerRadius: towerRadius, segmentFactor: 10.0}
	for i := 0; i < 3; i++ {
		angle := math.Pi / 180.0 * (90.0 + 120.0*float64(i))
		d.towerX[i] = towerRadius * math.Cos(angle)
		d.towerY[i] = towerRadius * math.Sin(angle)
	}
	return d
}

func (d *Delta) AxisCount() int          { return d.s.Descriptor.AxisCount }
func (d *Delta) StepperCount() int       { return d.s.Descriptor.StepperCount }
func (d *Delta) NonLinear() bool         { return true }
func (d *Delta) SegmentFactor() float64  { return d.segmentFactor }
func (d *Delta) HomingOrder() []int      { return []int{0, 1, 2} } // towers home together in practice; order is per-actuator here
func (d *Delta) ZeroPosition() []float64 { return make([]float64, d.AxisCount()) }

// HomingOffset mirrors Cartesian.HomingOffset: +HomingOffset per axis,
// negated where HomingDirInvertMask inverts that axis.
func (d *Delta) HomingOffset() []float64 {
	out := make([]float64, d.AxisCount())
	for i := range out {
		out[i] = d.s.HomingOffset
		if d.s.HomingDirInvertMask&(1<<uint(i)) != 0 {
			out[i] = -out[i]
		}
	}
	return out
}

// Inverse computes each tower's carriage height for a given effector
// position: towerZ = z + sqrt(rodLength^2 - dx^2 - dy^2).
func (d *Delta) Inverse(axis []float64) []int32 {
	x, y, z := axisXYZ(axis)
	steps := make([]int32, 3)
	for i := 0; i < 3; i++ {
		dx := x - d.towerX[i]
		dy := y - d.towerY[i]
		underRoot := d.RodLength*d.RodLength - dx*dx - dy*dy
		if underRoot < 0 {
			underRoot = 0
		}
		towerZ := z + math.Sqrt(underRoot)
		steps[i] = int32(roundHalfAwayFromZero(towerZ * d.s.StepPerMM[i]))
	}
	return steps
}

// Forward recovers the effector position from the three tower heights by
// trilateration: intersecting three spheres of radius RodLength centered on
// each tower at its carriage height.
func (d *Delta) Forward(steps []int32) []float64 {
	var z [3]float64
	for i := 0; i < 3; i++ {
		z[i] = float64(steps[i]) / d.s.StepPerMM[i]
	}

	// Work in the plane of the tower bases; build two edge vectors from
	// tower 0 to towers 1 and 2, then solve the standard trilateration
	// linear system for (x, y), substitute back for z.
	p1x, p1y, p1z := d.towerX[0], d.towerY[0], z[0]
	p2x, p2y, p2z := d.towerX[1], d.towerY[1], z[1]
	p3x, p3y, p3z := d.towerX[2], d.towerY[2], z[2]

	a11 := p2x - p1x
	a12 := p2y - p1y
	a21 := p3x - p1x
	a22 := p3y - p1y

	r2 := d.RodLength * d.RodLength
	b1 := 0.5 * ((p2x*p2x - p1x*p1x) + (p2y*p2y - p1y*p1y) + (p2z*p2z - p1z*p1z))
	b2 := 0.5 * ((p3x*p3x - p1x*p1x) + (p3y*p3y - p1y*p1y) + (p3z*p3z - p1z*p1z))

	// Subtracting sphere 0 from spheres 1 and 2 leaves a 2x2 system for
	// (x,y) whose right-hand side is linear in the effector height zOut, so
	// x and y are linear in zOut; substituting them into sphere 0 gives a
	// quadratic in zOut whose lower root is the effector below the carriages.
	det := a11*a22 - a12*a21
	if det == 0 {
		return []float64{0, 0, 0}
	}
	c1, c2 := p2z-p1z, p3z-p1z
	x0, xk := (b1*a22-b2*a12)/det-p1x, (c2*a12-c1*a22)/det
	y0, yk := (a11*b2-a21*b1)/det-p1y, (a21*c1-a11*c2)/det
	qa := xk*xk + yk*yk + 1
	qb := 2 * (x0*xk + y0*yk - p1z)
	qc := x0*x0 + y0*y0 + p1z*p1z - r2
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		disc = 0
	}
	zOut := (-qb - math.Sqrt(disc)) / (2 * qa)

	return []float64{x0 + p1x + xk*zOut, y0 + p1y + yk*zOut, zOut}
}

func (d *Delta) Transform(axis []float64)        {}
func (d *Delta) ReverseTransform(axis []float64) {}

func (d *Delta) CheckBoundaries(axis []float64, homing bool) bool {
	if !d.s.SoftLimitsEnabled || homing {
		return true
	}
	for i := 0; i < len(axis) && i < len(d.s.MaxDistance); i++ {
		if axis[i] < 0 || axis[i] > d.s.MaxDistance[i] {
			return false
		}
	}
	return true
}

func axisXYZ(axis []float64) (x, y, z float64) {
	if len(axis) > 0 {
		x = axis[0]
	}
	if len(axis) > 1 {
		y = axis[1]
	}
	if len(axis) > 2 {
		z = axis[2]
	}
	return
}
