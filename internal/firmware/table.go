package firmware

import (
	"fmt"

	"github.com/google/uuid"
)

// Table is a static firmware description, used on boards whose firmware does
// not publish the device node and in tests.
type Table struct {
	HID   string
	UID   uint32
	Props map[string]uint32
}

func (t *Table) Evaluate(method string) (*Result, error) {
	switch method {
	case MethodHID:
		if t.HID == "" {
			return nil, fmt.Errorf("firmware: table has no hardware id")
		}
		return StringResult(t.HID), nil
	case MethodUID:
		return IntegerResult(uint64(t.UID), 4), nil
	default:
		return nil, fmt.Errorf("firmware: method %s not in table", method)
	}
}

func (t *Table) Property(section uuid.UUID, name string) (*Result, error) {
	if section != DeviceProperties {
		return nil, fmt.Errorf("firmware: unknown property section %s", section)
	}
	v, ok := t.Props[name]
	if !ok {
		return nil, fmt.Errorf("firmware: property %s not in table", name)
	}
	return IntegerResult(uint64(v), 4), nil
}
