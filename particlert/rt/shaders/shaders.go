package shaders

import (
	_ "embed"
	"strings"
)

//go:embed particles.wgsl
var ParticlesWGSL string

// Particles specializes the particle shader for one record layout.
func Particles(use3DSize, use3DRotation, local bool) string {
	sizeT, rotT, roll := "f32", "f32", "r"
	if use3DSize {
		sizeT = "vec3<f32>"
	}
	if use3DRotation {
		rotT, roll = "vec3<f32>", "r.z"
	}

	attrs, apply := "", ""
	if local {
		attrs = "  @location(14) world_position: vec3<f32>,\n  @location(15) world_rotation: vec4<f32>,"
		apply = "  p = inst.world_position + quat_rotate(inst.world_rotation, p);"
	}

	return strings.NewReplacer(
		"SIZE_T", sizeT,
		"ROT_T", rotT,
		"ROLL_EXPR", roll,
		"LOCAL_ATTRS", attrs,
		"LOCAL_APPLY", apply,
	).Replace(ParticlesWGSL)
}
