package regmap

import "strings"

// Model identifies a silicon variant.
type Model uint32

const (
	ModelUnknown  Model = 0
	ModelMAX98512 Model = 98512
)

func (m Model) String() string {
	if v, ok := variants[m]; ok {
		return v.Name
	}
	return "unknown"
}

// Map is the set of control registers the bring-up sequence touches.
type Map struct {
	RevID      uint16
	TxEnA      uint16
	TxEnB      uint16
	TxHiZA     uint16
	TxHiZB     uint16
	TxChSrcA   uint16
	TxChSrcB   uint16
	SRSetup2   uint16
	MonomixA   uint16
	MonomixB   uint16
	GlobalShdn uint16
	AmpEn      uint16
	SoftReset  uint16
}

// Variant is everything needed to bring up one chip model.
type Variant struct {
	Model Model
	Name  string
	HID   string // firmware hardware identifier
	Regs  Map
	init  []Reg
}

// Init returns a copy of the variant's initialization table, in write order.
func (v Variant) Init() []Reg {
	out := make([]Reg, len(v.init))
	copy(out, v.init)
	return out
}

var max98512Init = []Reg{
	{MAX98512MeasADCThermWarn, 0x75},
	{MAX98512MeasADCThermShdn, 0x8C},
	{MAX98512MeasADCThermHyst, 0x08},
	{MAX98512PCMRxEnA, 0x03},
	{MAX98512PCMModeCfg, 0x58},
	{MAX98512PCMClkSetup, 0x26},
	{MAX98512PCMSRSetup1, 0x08},
}

var variants = map[Model]Variant{
	ModelMAX98512: {
		Model: ModelMAX98512,
		Name:  "max98512",
		HID:   "MX98512",
		Regs: Map{
			RevID:      MAX98512RevID,
			TxEnA:      MAX98512PCMTxEnA,
			TxEnB:      MAX98512PCMTxEnB,
			TxHiZA:     MAX98512PCMTxHiZCtrlA,
			TxHiZB:     MAX98512PCMTxHiZCtrlB,
			TxChSrcA:   MAX98512PCMTxChSrcA,
			TxChSrcB:   MAX98512PCMTxChSrcB,
			SRSetup2:   MAX98512PCMSRSetup2,
			MonomixA:   MAX98512PCMToSpkMonomixA,
			MonomixB:   MAX98512PCMToSpkMonomixB,
			GlobalShdn: MAX98512GlobalShdn,
			AmpEn:      MAX98512AmpEn,
			SoftReset:  MAX98512SoftReset,
		},
		init: max98512Init,
	},
}

// Lookup returns the variant for m.
func Lookup(m Model) (Variant, bool) {
	v, ok := variants[m]
	return v, ok
}

// ByHID matches a firmware hardware identifier against the known variants.
// Trailing NULs and surrounding whitespace are ignored; the match is exact otherwise.
func ByHID(hid string) (Variant, bool) {
	hid = strings.TrimSpace(strings.TrimRight(hid, "\x00"))
	for _, v := range variants {
		if v.HID == hid {
			return v, true
		}
	}
	return Variant{}, false
}

// Models lists the recognized chip models.
func Models() []Model {
	out := make([]Model, 0, len(variants))
	for m := range variants {
		out = append(out, m)
	}
	return out
}
