//go:build dcu

package gudavision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	gv "github.com/LynnColeArt/gudavision"
)

func TestActiveVendor(t *testing.T) {
	assert.Equal(t, gv.HIP, gv.ActiveVendor())
	assert.Equal(t, "hipMalloc", gv.ActiveVendor().Dispatch("Malloc"))
	assert.Contains(t, gv.BuildInfo(), "vendor=dcu")
}
