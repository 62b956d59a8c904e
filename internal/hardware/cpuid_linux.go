//go:build linux

package hardware

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const cpuidDevPath = "/dev/cpu/0/cpuid"

// readCPUIDDevice reads leaves 0 and 1 through the kernel cpuid driver. The
// file offset selects the leaf; each read returns eax, ebx, ecx, edx.
func readCPUIDDevice() (CPUID, error) {
	fd, err := unix.Open(cpuidDevPath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return CPUID{}, fmt.Errorf("cpuid: open %s: %w", cpuidDevPath, err)
	}
	defer unix.Close(fd)

	leaf := func(n int64) ([4]uint32, error) {
		var buf [16]byte
		if _, err := unix.Pread(fd, buf[:], n); err != nil {
			return [4]uint32{}, fmt.Errorf("cpuid: leaf %d: %w", n, err)
		}
		var regs [4]uint32
		for i := range regs {
			regs[i] = binary.LittleEndian.Uint32(buf[i*4:])
		}
		return regs, nil
	}
	l0, err := leaf(0)
	if err != nil {
		return CPUID{}, err
	}
	l1, err := leaf(1)
	if err != nil {
		return CPUID{}, err
	}
	return DecodeCPUID(l0[1], l0[2], l0[3], l1[0]), nil
}
