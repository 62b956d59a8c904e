// Package channel computes a codec instance's TDM monitor slots, interleave
// mode and stereo role. It performs no I/O and never fails.
package channel

import "github.com/micro-nova/gmaxd/internal/hardware"

// RightIndex is the instance UID that plays the right speaker.
type RightIndex uint32

// Optional is a firmware-provided value that may have failed to resolve.
type Optional struct {
	Value uint8
	OK    bool
}

// Some returns a resolved value.
func Some(v uint8) Optional { return Optional{Value: v, OK: true} }

// Overrides carries firmware-provided slot and interleave settings.
// A zero Overrides means nothing resolved.
type Overrides struct {
	Vmon       Optional
	Imon       Optional
	Interleave Optional
}

func (o Overrides) complete() bool {
	return o.Vmon.OK && o.Imon.OK && o.Interleave.OK
}

// Config is the per-bring-up channel configuration.
type Config struct {
	VmonSlot     uint8
	ImonSlot     uint8
	Interleave   bool
	RightChannel bool
}

// Default monitor slots for the two supported instances.
const (
	VmonSlotUID0  = 4
	ImonSlotUID0  = 5
	VmonSlotOther = 6
	ImonSlotOther = 7
)

// Assign computes the channel configuration for uid. Firmware values are used
// only if all three resolved; otherwise all three are replaced by defaults.
func Assign(uid uint32, right RightIndex, fw Overrides) Config {
	cfg := Config{RightChannel: uid == uint32(right)}
	if fw.complete() {
		cfg.VmonSlot = fw.Vmon.Value
		cfg.ImonSlot = fw.Imon.Value
		cfg.Interleave = fw.Interleave.Value&1 != 0
		return cfg
	}
	if uid == 0 {
		cfg.VmonSlot, cfg.ImonSlot = VmonSlotUID0, ImonSlotUID0
	} else {
		cfg.VmonSlot, cfg.ImonSlot = VmonSlotOther, ImonSlotOther
	}
	return cfg
}

// RightSpeakerIndex returns which UID is the right speaker on the given
// platform. AmberLake boards wire UID 0 to the right channel.
func RightSpeakerIndex(class hardware.PlatformClass) RightIndex {
	if class == hardware.PlatformAmberLake {
		return 0
	}
	return 1
}
