package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticlesSpecialization(t *testing.T) {
	for _, local := range []bool{false, true} {
		src := Particles(true, false, local)
		for _, placeholder := range []string{"SIZE_T", "ROT_T", "ROLL_EXPR", "LOCAL_ATTRS", "LOCAL_APPLY"} {
			assert.NotContains(t, src, placeholder)
		}
		assert.Contains(t, src, "start_size: vec3<f32>")
		assert.Contains(t, src, "start_rotation: f32")
		assert.Equal(t, local, strings.Contains(src, "world_rotation"))
	}
}

