package hardware

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PlatformClass is the host CPU platform. It selects which speaker instance
// carries the right channel.
type PlatformClass uint8

const (
	PlatformNone PlatformClass = iota
	PlatformRyzen
	PlatformAmberLake
	PlatformTigerLake
)

func (p PlatformClass) String() string {
	switch p {
	case PlatformRyzen:
		return "ryzen"
	case PlatformAmberLake:
		return "amberlake"
	case PlatformTigerLake:
		return "tigerlake"
	default:
		return "none"
	}
}

// ParsePlatformClass parses the names produced by String. "" and "auto" are rejected;
// callers handle auto-detection themselves.
func ParsePlatformClass(s string) (PlatformClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return PlatformNone, nil
	case "ryzen":
		return PlatformRyzen, nil
	case "amberlake":
		return PlatformAmberLake, nil
	case "tigerlake":
		return PlatformTigerLake, nil
	}
	return PlatformNone, fmt.Errorf("unknown platform class %q", s)
}

const (
	vendorAMD   = "AuthenticAMD"
	vendorIntel = "GenuineIntel"

	modelAmberLake = 142
)

// CPUID holds the decoded identification fields of the boot CPU.
type CPUID struct {
	Vendor   string
	Family   uint16
	Model    uint8
	Stepping uint8
}

// DecodeCPUID decodes leaf 0 (ebx, ecx, edx) and leaf 1 eax. Family and model
// follow the usual extended-field rules: the extended model is added for
// families 0x6 and 0xF, the extended family only for 0xF.
func DecodeCPUID(ebx0, ecx0, edx0, eax1 uint32) CPUID {
	var vendor [12]byte
	putLE(vendor[0:4], ebx0)
	putLE(vendor[4:8], edx0)
	putLE(vendor[8:12], ecx0)

	family := uint16(eax1>>8) & 0xF
	model := uint8(eax1>>4) & 0xF
	stepping := uint8(eax1) & 0xF
	if family == 0xF || family == 0x6 {
		model += uint8((eax1>>16)&0xF) << 4
	}
	if family == 0xF {
		family += uint16(eax1>>20) & 0xFF
	}
	return CPUID{
		Vendor:   strings.TrimRight(string(vendor[:]), "\x00"),
		Family:   family,
		Model:    model,
		Stepping: stepping,
	}
}

func putLE(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

// Classify maps a CPU identity to a platform class.
func Classify(id CPUID) PlatformClass {
	switch id.Vendor {
	case vendorAMD:
		return PlatformRyzen
	case vendorIntel:
		if id.Model == modelAmberLake {
			return PlatformAmberLake
		}
		return PlatformTigerLake
	}
	return PlatformNone
}

// ParseCPUInfo extracts the first processor's identity from /proc/cpuinfo
// text. The kernel already reports display family and model.
func ParseCPUInfo(r io.Reader) (CPUID, error) {
	var id CPUID
	var seen int
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if seen > 0 {
				break // end of the first processor block
			}
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "vendor_id":
			id.Vendor = val
			seen++
		case "cpu family":
			n, err := strconv.ParseUint(val, 10, 16)
			if err != nil {
				return CPUID{}, fmt.Errorf("cpuinfo: cpu family %q: %w", val, err)
			}
			id.Family = uint16(n)
			seen++
		case "model":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return CPUID{}, fmt.Errorf("cpuinfo: model %q: %w", val, err)
			}
			id.Model = uint8(n)
			seen++
		case "stepping":
			if n, err := strconv.ParseUint(val, 10, 8); err == nil {
				id.Stepping = uint8(n)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return CPUID{}, fmt.Errorf("cpuinfo: %w", err)
	}
	if id.Vendor == "" {
		return CPUID{}, fmt.Errorf("cpuinfo: no vendor_id")
	}
	return id, nil
}

const cpuInfoPath = "/proc/cpuinfo"

// DetectPlatform identifies the boot CPU and classifies it. It prefers the raw
// CPUID device and falls back to /proc/cpuinfo. Call it once at startup.
func DetectPlatform() (PlatformClass, CPUID, error) {
	id, err := readCPUIDDevice()
	if err != nil {
		f, ferr := os.Open(cpuInfoPath)
		if ferr != nil {
			return PlatformNone, CPUID{}, fmt.Errorf("platform: %v; %w", err, ferr)
		}
		defer f.Close()
		id, err = ParseCPUInfo(f)
		if err != nil {
			return PlatformNone, CPUID{}, fmt.Errorf("platform: %w", err)
		}
	}
	return Classify(id), id, nil
}
