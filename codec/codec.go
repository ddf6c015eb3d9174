package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	comp := new(T)
	err := json.Unmarshal(bz, comp)
	if err != nil {
		return *comp, eris.Wrap(err, "")
	}
	return *comp, nil
}

// DecodeInto unmarshals into an existing pointer target, for callers that
// only know the component type dynamically.
func DecodeInto(bz []byte, target any) error {
	if err := json.Unmarshal(bz, target); err != nil {
		return eris.Wrap(err, "")
	}
	return nil
}

func Encode(comp any) ([]byte, error) {
	bz, err := json.Marshal(comp)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}
