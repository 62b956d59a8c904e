// Package regmap describes the register maps and initialization tables of the
// supported amplifier variants.
package regmap

// MAX98512 register addresses (16-bit, big-endian on the wire).
const (
	MAX98512SoftReset        uint16 = 0x0100 // write 1 to reset all registers
	MAX98512RevID            uint16 = 0x01FF // silicon revision (read-only)
	MAX98512MeasADCThermWarn uint16 = 0x0014 // thermal warning threshold
	MAX98512MeasADCThermShdn uint16 = 0x0015 // thermal shutdown threshold
	MAX98512MeasADCThermHyst uint16 = 0x0016 // thermal hysteresis
	MAX98512PCMRxEnA         uint16 = 0x0018 // PCM receive slot enables
	MAX98512PCMTxEnA         uint16 = 0x001A // PCM transmit slot enables [7:0]
	MAX98512PCMTxEnB         uint16 = 0x001B // PCM transmit slot enables [15:8]
	MAX98512PCMTxHiZCtrlA    uint16 = 0x001C // PCM transmit hi-Z slots [7:0]
	MAX98512PCMTxHiZCtrlB    uint16 = 0x001D // PCM transmit hi-Z slots [15:8]
	MAX98512PCMTxChSrcA      uint16 = 0x001E // V/I monitor slot routing
	MAX98512PCMTxChSrcB      uint16 = 0x001F // monitor interleave select
	MAX98512PCMModeCfg       uint16 = 0x0020 // PCM format
	MAX98512PCMClkSetup      uint16 = 0x0022 // BCLK ratio
	MAX98512PCMSRSetup1      uint16 = 0x0023 // sample rate
	MAX98512PCMSRSetup2      uint16 = 0x0024 // monitor sample rate
	MAX98512PCMToSpkMonomixA uint16 = 0x0025 // mono mix channel select
	MAX98512PCMToSpkMonomixB uint16 = 0x0026 // mono mix source
	MAX98512AmpEn            uint16 = 0x0038 // speaker amplifier enable
	MAX98512GlobalShdn       uint16 = 0x0400 // global enable (1 = active)
)

// Bit fields shared by the MAX98927 family.
const (
	PCMTxChSrcAIShift     = 4
	PCMTxChInterleaveMask = 0x40
	MonomixChannelSelect  = 0x40 // MONOMIX_A: take the right PCM channel
	SRSetup2Interleaved   = 0x85
	SRSetup2Separate      = 0x88
)

// Reg is a register descriptor: an address and the value written to it.
type Reg struct {
	Addr uint16
	Val  uint8
}

// SlotMask returns the 16-bit slot bitmap with the vmon and imon slots set.
func SlotMask(vmon, imon uint8) uint16 {
	return uint16(1)<<(vmon&0x0f) | uint16(1)<<(imon&0x0f)
}

// SplitMask splits a 16-bit slot bitmap across the A (low) and B (high)
// register pair. The B register's reserved upper bits are forced set before
// truncation to the 8-bit register width.
func SplitMask(mask uint16) (lo, hi uint8) {
	return uint8(mask), uint8((mask >> 8) | 0xff00)
}

// ChannelSource packs the monitor slot numbers into PCM_TX_CH_SRC_A.
func ChannelSource(vmon, imon uint8) uint8 {
	return uint8((uint16(imon)<<PCMTxChSrcAIShift | uint16(vmon)) & 0xff)
}

// InterleaveSelect returns the PCM_TX_CH_SRC_B value.
func InterleaveSelect(interleave bool) uint8 {
	if interleave {
		return PCMTxChInterleaveMask
	}
	return 0
}

// SampleRateSetup2 returns the PCM_SR_SETUP2 value.
func SampleRateSetup2(interleave bool) uint8 {
	if interleave {
		return SRSetup2Interleaved
	}
	return SRSetup2Separate
}

// MonomixA returns the PCM_TO_SPK_MONOMIX_A value for the channel role.
func MonomixA(right bool) uint8 {
	if right {
		return MonomixChannelSelect
	}
	return 0
}

// DumpAddrs is the register set read back by a diagnostic dump.
var DumpAddrs = []uint16{
	0x0001, 0x0002, 0x0003, 0x0004, 0x0005, 0x0006, 0x0007, 0x0008,
	0x0009, 0x000A, 0x000B, 0x000C, 0x000D, 0x000E, 0x000F, 0x0010,
	0x0011, 0x0012, 0x0013, 0x0014, 0x0015, 0x0016, 0x0017, 0x0018,
	0x0019, 0x001A, 0x001B, 0x001C, 0x001D, 0x001E, 0x001F, 0x0020,
	0x0021, 0x0022, 0x0023, 0x0024, 0x0025, 0x0026, 0x0027, 0x0028,
	0x002B, 0x002C, 0x002E, 0x002F, 0x0030, 0x0031, 0x0032, 0x0033,
	0x0034, 0x0035, 0x0036, 0x0037, 0x0038, 0x0039, 0x003A, 0x003B,
	0x003C, 0x003D, 0x003E, 0x003F, 0x0040, 0x0041, 0x0042, 0x0043,
	0x0044, 0x0045, 0x0046, 0x0047, 0x0048, 0x0049, 0x004A, 0x004B,
	0x004C, 0x004D, 0x004E, 0x0051, 0x0052, 0x0053, 0x0054, 0x0055,
	0x005A, 0x005B, 0x005C, 0x005D, 0x005E, 0x005F, 0x0060, 0x0061,
	0x0072, 0x0073, 0x0074, 0x0075, 0x0076, 0x0077, 0x0078, 0x0079,
	0x007A, 0x007B, 0x007C, 0x007D, 0x007E, 0x007F, 0x0080, 0x0081,
	0x0082, 0x0083, 0x0084, 0x0085, 0x0086, 0x0087, 0x00FF, 0x0100,
	0x01FF,
}
