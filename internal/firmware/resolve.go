package firmware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/micro-nova/gmaxd/internal/models"
	"github.com/micro-nova/gmaxd/internal/regmap"
)

var errNotInitialized = errors.New("firmware interface not initialized")

// evaluate runs method and checks the response envelope.
func evaluate(ev Evaluator, method string) (*Argument, error) {
	op := "evaluate " + method
	if ev == nil {
		return nil, models.IdentityUnavailable(op, errNotInitialized)
	}
	res, err := ev.Evaluate(method)
	if err != nil {
		return nil, models.IdentityUnavailable(op, err)
	}
	if res == nil {
		return nil, models.IdentityUnavailable(op, errors.New("empty response"))
	}
	if res.Signature != OutputSignature {
		return nil, models.IdentityUnavailable(op, fmt.Errorf("bad signature 0x%08x", res.Signature))
	}
	if len(res.Args) < 1 {
		return nil, models.IdentityUnavailable(op, errors.New("no arguments returned"))
	}
	return &res.Args[0], nil
}

// ResolveModel evaluates the hardware identifier and maps it to a known chip
// model. An identifier that matches no variant is an error; there is no
// fallback model.
func ResolveModel(ev Evaluator) (regmap.Model, error) {
	arg, err := evaluate(ev, MethodHID)
	if err != nil {
		return regmap.ModelUnknown, err
	}
	hid := strings.TrimSpace(strings.TrimRight(string(arg.Data), "\x00"))
	v, ok := regmap.ByHID(hid)
	if !ok {
		return regmap.ModelUnknown, models.UnrecognizedDevice(hid)
	}
	return v.Model, nil
}

// ResolveUID evaluates the instance UID into dst. The value is decoded at the
// widest of 4, 2 or 1 bytes that the data covers and zero-extended.
func ResolveUID(ev Evaluator, dst *uint32) error {
	arg, err := evaluate(ev, MethodUID)
	if err != nil {
		return err
	}
	var uid uint32
	switch d := arg.Data; {
	case len(d) >= 4:
		uid = binary.LittleEndian.Uint32(d)
	case len(d) >= 2:
		uid = uint32(binary.LittleEndian.Uint16(d))
	case len(d) == 1:
		uid = uint32(d[0])
	default:
		return models.IdentityUnavailable("evaluate "+MethodUID, errors.New("empty data"))
	}
	if dst == nil {
		return models.InvalidArgument("resolve uid")
	}
	*dst = uid
	return nil
}

// Property reads a small integer device property. Only the low nibble of
// the first data byte is significant. Every failure is PropertyUnavailable;
// callers substitute defaults.
func Property(ps PropertySource, name string) (uint8, error) {
	if ps == nil {
		return 0, models.PropertyUnavailable(name, errNotInitialized)
	}
	res, err := ps.Property(DeviceProperties, name)
	if err != nil {
		return 0, models.PropertyUnavailable(name, err)
	}
	switch {
	case res == nil:
		return 0, models.PropertyUnavailable(name, errors.New("empty response"))
	case res.Signature != OutputSignatureV1:
		return 0, models.PropertyUnavailable(name, fmt.Errorf("bad signature 0x%08x", res.Signature))
	case len(res.Args) < 1:
		return 0, models.PropertyUnavailable(name, errors.New("no arguments returned"))
	case res.Args[0].Type != ArgInteger:
		return 0, models.PropertyUnavailable(name, fmt.Errorf("%s value, want integer", res.Args[0].Type))
	case len(res.Args[0].Data) < 1:
		return 0, models.PropertyUnavailable(name, errors.New("empty data"))
	}
	return res.Args[0].Data[0] & 0x0f, nil
}
