package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is an orthographic view of the galaxy. Rotation spins the cloud
// about its own axes (the animation step); Tilt raises the camera above the
// galactic plane. Aspect squeezes the vertical axis for targets whose cells
// are not square; zero means 1.
type Camera struct {
	Rotation r3.Vec
	Tilt     float64
	Scale    float64
	Aspect   float64
	CenterX  float64
	CenterY  float64
}

// DefaultTilt looks down on the disc at roughly the angle of a camera
// placed at (3, 3, 3).
const DefaultTilt = math.Pi / 5

// FitCamera centers a camera on a width x height target so that a disc of
// the given radius fills most of the shorter side.
func FitCamera(width, height int, radius float64) Camera {
	extent := math.Max(radius*1.1, 0.01)
	return Camera{
		Tilt:    DefaultTilt,
		Scale:   float64(min(width, height)) / 2 / extent,
		CenterX: float64(width) / 2,
		CenterY: float64(height) / 2,
	}
}

// Projector applies one camera to many points.
type Projector struct {
	rotX, rotY, rotZ, tilt r3.Rotation
	camera                 Camera
}

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

func (c Camera) Projector() Projector {
	return Projector{
		rotX:   r3.NewRotation(c.Rotation.X, axisX),
		rotY:   r3.NewRotation(c.Rotation.Y, axisY),
		rotZ:   r3.NewRotation(c.Rotation.Z, axisZ),
		tilt:   r3.NewRotation(c.Tilt, axisX),
		camera: c,
	}
}

// Project maps a scene point to screen coordinates, y growing downwards.
// Depth grows towards the viewer.
func (p Projector) Project(v r3.Vec) (x, y, depth float64) {
	v = p.rotX.Rotate(p.rotY.Rotate(p.rotZ.Rotate(v)))
	v = p.tilt.Rotate(v)
	aspect := p.camera.Aspect
	if aspect == 0 {
		aspect = 1
	}
	return p.camera.CenterX + v.X*p.camera.Scale, p.camera.CenterY - v.Y*p.camera.Scale*aspect, v.Z
}
