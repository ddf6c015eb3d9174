package codec

import (
	"testing"

	"github.com/bevyengine/bevy-sub038/assert"
)

type health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode[health]([]byte(`{"current": `))
	assert.Assert(t, err != nil)
}

func TestDecodeIntoDynamicTarget(t *testing.T) {
	bz, err := Encode(health{Current: 40, Max: 100})
	assert.NilError(t, err)

	var target any = &health{}
	assert.NilError(t, DecodeInto(bz, target))
	assert.DeepEqual(t, &health{Current: 40, Max: 100}, target)
}
