package regmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/micro-nova/gmaxd/internal/regmap"
)

func TestSlotMaskSplit(t *testing.T) {
	tests := []struct {
		vmon, imon uint8
		mask       uint16
		lo, hi     uint8
		hizLo      uint8
		hizHi      uint8
	}{
		{4, 5, 0x0030, 0x30, 0x00, 0xCF, 0xFF},
		{6, 7, 0x00C0, 0xC0, 0x00, 0x3F, 0xFF},
		{0, 8, 0x0101, 0x01, 0x01, 0xFE, 0xFE},
		{15, 15, 0x8000, 0x00, 0x80, 0xFF, 0x7F},
	}
	for _, tc := range tests {
		mask := regmap.SlotMask(tc.vmon, tc.imon)
		if mask != tc.mask {
			t.Errorf("SlotMask(%d,%d) = 0x%04X, want 0x%04X", tc.vmon, tc.imon, mask, tc.mask)
		}
		lo, hi := regmap.SplitMask(mask)
		if lo != tc.lo || hi != tc.hi {
			t.Errorf("SplitMask(0x%04X) = (0x%02X,0x%02X), want (0x%02X,0x%02X)", mask, lo, hi, tc.lo, tc.hi)
		}
		lo, hi = regmap.SplitMask(^mask)
		if lo != tc.hizLo || hi != tc.hizHi {
			t.Errorf("SplitMask(^0x%04X) = (0x%02X,0x%02X), want (0x%02X,0x%02X)", mask, lo, hi, tc.hizLo, tc.hizHi)
		}
	}
}

func TestChannelSource(t *testing.T) {
	if got := regmap.ChannelSource(4, 5); got != 0x54 {
		t.Errorf("ChannelSource(4,5) = 0x%02X, want 0x54", got)
	}
	if got := regmap.ChannelSource(6, 7); got != 0x76 {
		t.Errorf("ChannelSource(6,7) = 0x%02X, want 0x76", got)
	}
}

func TestInterleaveDependentValues(t *testing.T) {
	if regmap.InterleaveSelect(true) != 0x40 || regmap.InterleaveSelect(false) != 0 {
		t.Error("InterleaveSelect values wrong")
	}
	if regmap.SampleRateSetup2(true) != 0x85 || regmap.SampleRateSetup2(false) != 0x88 {
		t.Error("SampleRateSetup2 values wrong")
	}
	if regmap.MonomixA(true) != 0x40 || regmap.MonomixA(false) != 0 {
		t.Error("MonomixA values wrong")
	}
}

func TestByHID(t *testing.T) {
	tests := []struct {
		hid  string
		ok   bool
		want regmap.Model
	}{
		{"MX98512", true, regmap.ModelMAX98512},
		{"MX98512\x00", true, regmap.ModelMAX98512},
		{"MX98927", false, regmap.ModelUnknown},
		{"MX9851", false, regmap.ModelUnknown},
		{"", false, regmap.ModelUnknown},
	}
	for _, tc := range tests {
		v, ok := regmap.ByHID(tc.hid)
		if ok != tc.ok || v.Model != tc.want {
			t.Errorf("ByHID(%q) = (%v, %v), want (%v, %v)", tc.hid, v.Model, ok, tc.want, tc.ok)
		}
	}
}

func TestInitTableOrderAndCopy(t *testing.T) {
	v, ok := regmap.Lookup(regmap.ModelMAX98512)
	if !ok {
		t.Fatal("MAX98512 not registered")
	}
	want := []regmap.Reg{
		{Addr: 0x0014, Val: 0x75},
		{Addr: 0x0015, Val: 0x8C},
		{Addr: 0x0016, Val: 0x08},
		{Addr: 0x0018, Val: 0x03},
		{Addr: 0x0020, Val: 0x58},
		{Addr: 0x0022, Val: 0x26},
		{Addr: 0x0023, Val: 0x08},
	}
	got := v.Init()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("init table mismatch (-want +got):\n%s", diff)
	}

	got[0].Val = 0
	if again := v.Init(); again[0].Val != 0x75 {
		t.Error("Init() must return a copy; table was mutated through the result")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := regmap.Lookup(regmap.Model(12345)); ok {
		t.Error("Lookup of unknown model succeeded")
	}
	if got := regmap.Model(12345).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
	if got := regmap.ModelMAX98512.String(); got != "max98512" {
		t.Errorf("String() = %q, want max98512", got)
	}
}
