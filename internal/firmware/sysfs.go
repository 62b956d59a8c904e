package firmware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Sysfs reads identity and properties from a firmware device node directory,
// e.g. /sys/bus/acpi/devices/MX98512:00.
//
// Identity comes from the node's "hid" and "uid" attributes. Properties are
// looked up first in a "properties" directory holding one decimal or 0x-hex
// value per file, then in the "of_node" directory where each property file is
// a sequence of big-endian 32-bit cells.
type Sysfs struct {
	Dir string
}

// NewSysfs returns a source rooted at dir.
func NewSysfs(dir string) *Sysfs {
	return &Sysfs{Dir: dir}
}

func (s *Sysfs) readAttr(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Evaluate answers _HID and _UID.
func (s *Sysfs) Evaluate(method string) (*Result, error) {
	switch method {
	case MethodHID:
		hid, err := s.readAttr("hid")
		if err != nil {
			return nil, fmt.Errorf("firmware: read hid: %w", err)
		}
		return StringResult(hid), nil
	case MethodUID:
		raw, err := s.readAttr("uid")
		if err != nil {
			return nil, fmt.Errorf("firmware: read uid: %w", err)
		}
		uid, err := strconv.ParseUint(raw, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("firmware: parse uid %q: %w", raw, err)
		}
		return IntegerResult(uid, 4), nil
	default:
		return nil, fmt.Errorf("firmware: method %s not supported by sysfs", method)
	}
}

// Property looks name up in the properties and of_node directories.
func (s *Sysfs) Property(section uuid.UUID, name string) (*Result, error) {
	if section != DeviceProperties {
		return nil, fmt.Errorf("firmware: unknown property section %s", section)
	}
	if strings.ContainsRune(name, '/') {
		return nil, fmt.Errorf("firmware: invalid property name %q", name)
	}

	raw, err := s.readAttr(filepath.Join("properties", name))
	if err == nil {
		v, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("firmware: parse property %s: %w", name, err)
		}
		return IntegerResult(v, 8), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("firmware: read property %s: %w", name, err)
	}

	cells, err := os.ReadFile(filepath.Join(s.Dir, "of_node", name))
	if err != nil {
		return nil, fmt.Errorf("firmware: read property %s: %w", name, err)
	}
	if len(cells) < 4 {
		return nil, fmt.Errorf("firmware: property %s: short cell (%d bytes)", name, len(cells))
	}
	return IntegerResult(uint64(binary.BigEndian.Uint32(cells)), 4), nil
}
