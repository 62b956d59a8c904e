// Package firmware resolves a codec instance's identity (chip model and
// per-instance UID) and its named integer properties from platform firmware.
//
// Firmware is reached through two small interfaces so the same resolver
// works over sysfs, a static table from the daemon config, or a test double.
package firmware

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Result signatures. Evaluators stamp every well-formed response with one of
// these; anything else is treated as a malformed reply.
const (
	OutputSignature   uint32 = 0x426F6541 // "BoeA"
	OutputSignatureV1 uint32 = OutputSignature
)

// Method names evaluated for identity.
const (
	MethodHID = "_HID"
	MethodUID = "_UID"
)

// Integer properties read before bring-up.
const (
	PropInterleave = "interleave_mode"
	PropVmonSlot   = "vmon-slot-no"
	PropImonSlot   = "imon-slot-no"
)

// DeviceProperties is the section UUID under which device-specific
// properties are published.
var DeviceProperties = uuid.MustParse("daffd814-6eba-4d8c-8a91-bc9bbf4aa301")

// ArgType is the type tag of one returned argument.
type ArgType uint16

const (
	ArgInteger ArgType = iota
	ArgString
	ArgBuffer
	ArgPackage
)

func (t ArgType) String() string {
	switch t {
	case ArgInteger:
		return "integer"
	case ArgString:
		return "string"
	case ArgBuffer:
		return "buffer"
	case ArgPackage:
		return "package"
	default:
		return "unknown"
	}
}

// Argument is one value in a firmware response. Integer data is little-endian.
type Argument struct {
	Type ArgType
	Data []byte
}

// Result is a firmware method or property response.
type Result struct {
	Signature uint32
	Args      []Argument
}

// Evaluator runs a named firmware method on the device node.
type Evaluator interface {
	Evaluate(method string) (*Result, error)
}

// PropertySource answers device-specific property queries.
type PropertySource interface {
	Property(section uuid.UUID, name string) (*Result, error)
}

// StringResult builds a well-formed single-string response. The data carries
// a trailing NUL like the firmware encoding does.
func StringResult(s string) *Result {
	data := make([]byte, len(s)+1)
	copy(data, s)
	return &Result{
		Signature: OutputSignature,
		Args:      []Argument{{Type: ArgString, Data: data}},
	}
}

// IntegerResult builds a well-formed single-integer response of the given
// byte width (1, 2, 4 or 8).
func IntegerResult(v uint64, width int) *Result {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	switch width {
	case 1, 2, 4, 8:
	default:
		width = 8
	}
	return &Result{
		Signature: OutputSignature,
		Args:      []Argument{{Type: ArgInteger, Data: append([]byte(nil), buf[:width]...)}},
	}
}
