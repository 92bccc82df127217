package assert_test

import (
	"github.com/saylorsolutions/ringbus/assert"
	testify "github.com/stretchr/testify/assert"
	"testing"
)

func TestTrue(t *testing.T) {
	testify.NotPanics(t, func() {
		assert.True("true", true)
		assert.TrueFunc("returns true", func() bool {
			return true
		})
	})
	testify.Panics(t, func() {
		assert.True("false", false)
	})
}

func TestDisable(t *testing.T) {
	assert.Disable()
	t.Cleanup(func() {
		assert.Enable()
	})
	testify.NotPanics(t, func() {
		assert.True("false", false)
		assert.TrueFunc("also false", func() bool {
			return false
		})
	})
}
