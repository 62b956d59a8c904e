//go:build !linux

package hardware

import "errors"

func readCPUIDDevice() (CPUID, error) {
	return CPUID{}, errors.New("cpuid: device not available on this OS")
}
