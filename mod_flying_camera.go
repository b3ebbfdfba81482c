package gekko

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraComponent is a perspective camera. Fov is in degrees; the aspect
// ratio comes from the window at render time.
type CameraComponent struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Fov      float32
	Near     float32
	Far      float32
}

// NewCamera points a camera at target and derives yaw and pitch from the
// view direction so a FlyingCameraComponent continues from there.
func NewCamera(position, target mgl32.Vec3, fov, near, far float32) CameraComponent {
	cam := CameraComponent{
		Position: position,
		LookAt:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		Fov:      fov,
		Near:     near,
		Far:      far,
	}
	dir := target.Sub(position)
	if dir.Len() > 0 {
		dir = dir.Normalize()
		cam.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(dir.X()), float64(-dir.Z()))))
		cam.Pitch = mgl32.RadToDeg(float32(math.Asin(float64(mgl32.Clamp(dir.Y(), -1, 1)))))
	}
	return cam
}

type FlyingCameraModule struct{}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(FlyingCameraInputSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(FlyingCameraControlSystem).
			InStage(Update).
			RunAlways(),
	)
}

type FlyingCameraComponent struct {
	Speed       float32
	Sensitivity float32
	Move        mgl32.Vec3
	Look        mgl32.Vec2
}

func FlyingCameraInputSystem(input *Input, cmd *Commands) {
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	MakeQuery1[FlyingCameraComponent](cmd).Map(func(eid EntityId, fly *FlyingCameraComponent) bool {
		fly.Move = mgl32.Vec3{0, 0, 0}
		if input.Pressed[KeyW] {
			fly.Move[2] += 1
		}
		if input.Pressed[KeyS] {
			fly.Move[2] -= 1
		}
		if input.Pressed[KeyA] {
			fly.Move[0] -= 1
		}
		if input.Pressed[KeyD] {
			fly.Move[0] += 1
		}
		if input.Pressed[KeyE] {
			fly.Move[1] += 1
		}
		if input.Pressed[KeyQ] {
			fly.Move[1] -= 1
		}

		if input.MouseCaptured {
			fly.Look[0] = float32(input.MouseDeltaX)
			fly.Look[1] = float32(input.MouseDeltaY)
		} else {
			fly.Look[0] = 0
			fly.Look[1] = 0
		}

		return true
	})
}

func FlyingCameraControlSystem(cmd *Commands, time *Time) {
	dt := time.DtSeconds()
	if dt <= 0 {
		return
	}

	MakeQuery2[CameraComponent, FlyingCameraComponent](cmd).Map(func(eid EntityId, cam *CameraComponent, fly *FlyingCameraComponent) bool {
		if fly.Sensitivity == 0 {
			fly.Sensitivity = 0.1
		}

		cam.Yaw += fly.Look[0] * fly.Sensitivity
		cam.Pitch -= fly.Look[1] * fly.Sensitivity
		cam.Pitch = mgl32.Clamp(cam.Pitch, -89, 89)

		forward := flyingForward(cam.Yaw, cam.Pitch)
		right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
		up := mgl32.Vec3{0, 1, 0}

		if fly.Speed == 0 {
			fly.Speed = 5.0
		}

		moveDir := right.Mul(fly.Move[0]).
			Add(up.Mul(fly.Move[1])).
			Add(forward.Mul(fly.Move[2]))
		if moveDir.Len() > 0 {
			cam.Position = cam.Position.Add(moveDir.Normalize().Mul(fly.Speed * dt))
		}

		cam.LookAt = cam.Position.Add(forward)
		cam.Up = up
		return true
	})
}

func flyingForward(yaw, pitch float32) mgl32.Vec3 {
	yawRad := float64(mgl32.DegToRad(yaw))
	pitchRad := float64(mgl32.DegToRad(pitch))
	return mgl32.Vec3{
		float32(math.Sin(yawRad) * math.Cos(pitchRad)),
		float32(math.Sin(pitchRad)),
		float32(-math.Cos(yawRad) * math.Cos(pitchRad)),
	}.Normalize()
}
