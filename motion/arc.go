package motion

import (
	"math"

	"ucnc/planner"
)

// arcCosTaylor1 is the Taylor-series coefficient used for the incremental
// rotation matrix's cosine approximation (1/2, the second-order term of
// cos(x) = 1 - x^2/2 + ...), matching the M_COS_TAYLOR_1 constant in
// original_source/uCNC/src/core/motion_control.c.
const arcCosTaylor1 = 0.5

// nArcCorrection is the number of incremental-rotation segments generated
// between each exact re-seed of the radius vector via true cos/sin.
const nArcCorrection = 12

// Arc produces a sequence of chord-approximated line segments lying in the
// plane (axis0, axis1), linearly interpolating every other axis, grounded on
// original_source/uCNC/src/core/motion_control.c:mc_arc.
func (c *Controller) Arc(target []float64, centerOffsetA, centerOffsetB, radius float64, axis0, axis1 int, clockwise bool, block *planner.Block) Status {
	position := make([]float64, c.kin.AxisCount())
	c.GetPosition(position)

	centerA := position[axis0] + centerOffsetA
	centerB := position[axis1] + centerOffsetB

	pt0a, pt0b := -centerOffsetA, -centerOffsetB
	pt1a := target[axis0] - centerA
	pt1b := target[axis1] - centerB

	dot := pt0a*pt1a + pt0b*pt1b
	det := pt0a*pt1b - pt0b*pt1a
	arcAngle := math.Atan2(det, dot)

	if clockwise {
		if arcAngle >= 0 {
			arcAngle -= 2 * math.Pi
		}
	} else if arcAngle <= 0 {
		arcAngle += 2 * math.Pi
	}

	radiusAngle := radius * arcAngle / 2.0
	diameter := radius * 2.0
	tol := c.arcTolerance()
	segmentCount := 0
	if denom := tol * (diameter - tol); denom > 0 {
		segmentCount = int(math.Floor(math.Abs(radiusAngle) / math.Sqrt(denom)))
	}

	arcPerSegment := arcAngle
	if segmentCount != 0 {
		arcPerSegment = arcAngle / float64(segmentCount)
	}

	increment := make([]float64, len(position))
	for i := range increment {
		if segmentCount != 0 {
			increment[i] = (target[i] - position[i]) / float64(segmentCount)
		}
	}
	increment[axis0] = 0
	increment[axis1] = 0

	if block.MotionMode&planner.FlagInverseFeed != 0 {
		block.Feed *= float64(segmentCount)
	}

	arcPerSegmentSq := arcPerSegment * arcPerSegment
	cosPerSegment := 1 - arcCosTaylor1*arcPerSegmentSq
	sinPerSegment := arcPerSegment * cosPerSegment
	cosPerSegment = arcPerSegmentSq * (cosPerSegment + 1)
	cosPerSegment = 1 - cosPerSegment/4.0

	count := 0
	for seg := 1; seg < segmentCount; seg++ {
		if count < nArcCorrection {
			newPt := pt0a*sinPerSegment + pt0b*cosPerSegment
			pt0a = pt0a*cosPerSegment - pt0b*sinPerSegment
			pt0b = newPt
			count++
		} else {
			angle := float64(seg) * arcPerSegment
			preciseCos := math.Cos(angle)
			preciseSin := math.Sqrt(1 - preciseCos*preciseCos)
			if angle >= 0 {
				if math.Abs(angle) > math.Pi {
					preciseSin = -preciseSin
				}
			} else if math.Abs(angle) <= math.Pi {
				preciseSin = -preciseSin
			}

			pt0a = -centerOffsetA*preciseCos + centerOffsetB*preciseSin
			pt0b = -centerOffsetA*preciseSin - centerOffsetB*preciseCos
			count = 0
		}

		position[axis0] = centerA + pt0a
		position[axis1] = centerB + pt0b
		for i := range position {
			if i != axis0 && i != axis1 {
				position[i] += increment[i]
			}
		}

		if status := c.Line(position, block); status != OK {
			return status
		}
	}

	return c.Line(target, block)
}

// arcTolerance exposes settings.ArcTolerance through the controller so Arc
// never reaches behind the kinematics abstraction for a raw settings field.
func (c *Controller) arcTolerance() float64 {
	return c.s.ArcTolerance
}
