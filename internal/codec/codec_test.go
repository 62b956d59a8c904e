package codec_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/micro-nova/gmaxd/internal/channel"
	"github.com/micro-nova/gmaxd/internal/codec"
	"github.com/micro-nova/gmaxd/internal/events"
	"github.com/micro-nova/gmaxd/internal/firmware"
	"github.com/micro-nova/gmaxd/internal/hardware"
	"github.com/micro-nova/gmaxd/internal/models"
	"github.com/micro-nova/gmaxd/internal/regmap"
)

var i2cRes = []codec.Resource{
	{Kind: codec.ResourceGPIO, Bus: "GPIO17"},
	{Kind: codec.ResourceI2C, Bus: "/dev/i2c-1", Addr: 0x39},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	dev    *codec.Device
	mock   *hardware.Mock
	opened []codec.Resource
}

func newFixture(t *testing.T, tbl *firmware.Table, opts codec.Options) *fixture {
	t.Helper()
	f := &fixture{mock: hardware.NewMock()}
	if tbl != nil {
		opts.Firmware = tbl
		opts.Properties = tbl
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	opener := codec.OpenerFunc(func(r codec.Resource) (hardware.Transport, error) {
		f.opened = append(f.opened, r)
		return f.mock, nil
	})
	f.dev = codec.New(opener, opts)
	return f
}

func prepared(t *testing.T, tbl *firmware.Table, opts codec.Options) *fixture {
	t.Helper()
	f := newFixture(t, tbl, opts)
	if err := f.dev.PrepareHardware(i2cRes); err != nil {
		t.Fatalf("PrepareHardware: %v", err)
	}
	return f
}

// initWrites is the MAX98512 initialization table as written on the bus.
var initWrites = []hardware.Transaction{
	{Op: hardware.OpWrite, Addr: 0x0014, Val: 0x75},
	{Op: hardware.OpWrite, Addr: 0x0015, Val: 0x8C},
	{Op: hardware.OpWrite, Addr: 0x0016, Val: 0x08},
	{Op: hardware.OpWrite, Addr: 0x0018, Val: 0x03},
	{Op: hardware.OpWrite, Addr: 0x0020, Val: 0x58},
	{Op: hardware.OpWrite, Addr: 0x0022, Val: 0x26},
	{Op: hardware.OpWrite, Addr: 0x0023, Val: 0x08},
}

func w(addr uint16, val uint8) hardware.Transaction {
	return hardware.Transaction{Op: hardware.OpWrite, Addr: addr, Val: val}
}

func bringUpLog(post ...hardware.Transaction) []hardware.Transaction {
	log := []hardware.Transaction{{Op: hardware.OpRead, Addr: 0x01FF}}
	log = append(log, initWrites...)
	return append(log, post...)
}

func TestBringUpSequenceUID0Defaults(t *testing.T) {
	f := prepared(t, &firmware.Table{HID: "MX98512", UID: 0}, codec.Options{Right: 1})

	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	want := bringUpLog(
		w(0x001A, 0x30), // slots 4 and 5
		w(0x001B, 0x00),
		w(0x001C, 0xCF),
		w(0x001D, 0xFF),
		w(0x001E, 0x54),
		w(0x001F, 0x00),
		w(0x0024, 0x88),
		w(0x0025, 0x00),
		w(0x0026, 0x01),
		w(0x0400, 0x01),
		w(0x0038, 0x01),
	)
	if diff := cmp.Diff(want, f.mock.Log()); diff != "" {
		t.Errorf("bring-up log mismatch (-want +got):\n%s", diff)
	}
	if !f.dev.PoweredOn() || f.dev.State() != codec.PoweredOn {
		t.Errorf("state = %v, want powered-on", f.dev.State())
	}
}

func TestBringUpSequenceUID1RightChannel(t *testing.T) {
	f := prepared(t, &firmware.Table{HID: "MX98512", UID: 1}, codec.Options{Right: 1})

	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	want := bringUpLog(
		w(0x001A, 0xC0), // slots 6 and 7
		w(0x001B, 0x00),
		w(0x001C, 0x3F),
		w(0x001D, 0xFF),
		w(0x001E, 0x76),
		w(0x001F, 0x00),
		w(0x0024, 0x88),
		w(0x0025, 0x40),
		w(0x0026, 0x01),
		w(0x0400, 0x01),
		w(0x0038, 0x01),
	)
	if diff := cmp.Diff(want, f.mock.Log()); diff != "" {
		t.Errorf("bring-up log mismatch (-want +got):\n%s", diff)
	}
}

func TestBringUpFirmwareSlots(t *testing.T) {
	tbl := &firmware.Table{HID: "MX98512", UID: 0, Props: map[string]uint32{
		firmware.PropVmonSlot:   2,
		firmware.PropImonSlot:   3,
		firmware.PropInterleave: 1,
	}}
	f := prepared(t, tbl, codec.Options{Right: 0})

	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	want := bringUpLog(
		w(0x001A, 0x0C),
		w(0x001B, 0x00),
		w(0x001C, 0xF3),
		w(0x001D, 0xFF),
		w(0x001E, 0x32),
		w(0x001F, 0x40),
		w(0x0024, 0x85),
		w(0x0025, 0x40),
		w(0x0026, 0x01),
		w(0x0400, 0x01),
		w(0x0038, 0x01),
	)
	if diff := cmp.Diff(want, f.mock.Log()); diff != "" {
		t.Errorf("bring-up log mismatch (-want +got):\n%s", diff)
	}
}

func TestBringUpPartialFirmwareUsesDefaults(t *testing.T) {
	// vmon resolves but imon does not: both fall back.
	tbl := &firmware.Table{HID: "MX98512", UID: 0, Props: map[string]uint32{
		firmware.PropVmonSlot:   2,
		firmware.PropInterleave: 1,
	}}
	f := prepared(t, tbl, codec.Options{})
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	if got := f.mock.GetReg(0x001A); got != 0x30 {
		t.Errorf("TX_EN_A = 0x%02X, want default slots 0x30", got)
	}
	if got := f.mock.GetReg(0x001F); got != 0x00 {
		t.Errorf("TX_CH_SRC_B = 0x%02X, want interleave off", got)
	}
}

func TestBringUpRevisionReadIsNotFatal(t *testing.T) {
	f := prepared(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	f.mock.FailAt(0x01FF, hardware.OpRead)
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	if !f.dev.PoweredOn() {
		t.Error("not powered on after revision read failure")
	}
}

func TestBringUpAbortsOnFirstFailure(t *testing.T) {
	full := []uint16{
		0x0014, 0x0015, 0x0016, 0x0018, 0x0020, 0x0022, 0x0023,
		0x001A, 0x001B, 0x001C, 0x001D, 0x001E, 0x001F, 0x0024, 0x0025, 0x0026, 0x0400, 0x0038,
	}
	for i, failAddr := range full {
		f := prepared(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
		f.mock.FailAt(failAddr, hardware.OpWrite)

		err := f.dev.D0Entry()
		if !errors.Is(err, models.ErrBus) {
			t.Fatalf("fail at 0x%04X: error = %v, want bus error", failAddr, err)
		}
		if f.dev.PoweredOn() {
			t.Errorf("fail at 0x%04X: powered on after failed bring-up", failAddr)
		}
		var got []uint16
		for _, tr := range f.mock.Writes() {
			got = append(got, tr.Addr)
		}
		want := full[:i]
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("fail at 0x%04X: writes mismatch (-want +got):\n%s", failAddr, diff)
		}
	}
}

func TestBringUpBeforeIdentity(t *testing.T) {
	f := newFixture(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	err := f.dev.D0Entry()
	if !errors.Is(err, models.ErrInvalidDeviceState) {
		t.Fatalf("D0Entry error = %v, want invalid device state", err)
	}
	if n := len(f.mock.Log()); n != 0 {
		t.Errorf("%d transactions before identity, want 0", n)
	}
	if f.dev.State() != codec.Uninitialized {
		t.Errorf("state = %v, want uninitialized", f.dev.State())
	}
}

func TestUnrecognizedDeviceNeverBringsUp(t *testing.T) {
	f := newFixture(t, &firmware.Table{HID: "MX98927"}, codec.Options{})
	err := f.dev.PrepareHardware(i2cRes)
	if !errors.Is(err, models.ErrUnrecognizedDevice) {
		t.Fatalf("PrepareHardware error = %v, want unrecognized device", err)
	}
	if !f.mock.Closed() {
		t.Error("transport left open after failed prepare")
	}
	if err := f.dev.D0Entry(); !errors.Is(err, models.ErrInvalidDeviceState) {
		t.Errorf("D0Entry error = %v, want invalid device state", err)
	}
	if n := len(f.mock.Writes()); n != 0 {
		t.Errorf("%d writes to unrecognized device, want 0", n)
	}
}

func TestPrepareIdentityUnavailable(t *testing.T) {
	f := newFixture(t, nil, codec.Options{})
	err := f.dev.PrepareHardware(i2cRes)
	if !errors.Is(err, models.ErrIdentityUnavailable) {
		t.Fatalf("error = %v, want identity unavailable", err)
	}
	if models.Status(err) == 0 {
		t.Error("identity failure mapped to success status")
	}
}

func TestPrepareRequiresI2CResource(t *testing.T) {
	f := newFixture(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	err := f.dev.PrepareHardware([]codec.Resource{{Kind: codec.ResourceInterrupt}})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	if len(f.opened) != 0 {
		t.Error("opener called without an i2c resource")
	}
}

func TestPrepareUsesFirstI2CResource(t *testing.T) {
	res := []codec.Resource{
		{Kind: codec.ResourceGPIO, Bus: "GPIO17"},
		{Kind: codec.ResourceI2C, Bus: "/dev/i2c-1", Addr: 0x39},
		{Kind: codec.ResourceI2C, Bus: "/dev/i2c-2", Addr: 0x3A},
	}
	f := prepared(t, &firmware.Table{HID: "MX98512", UID: 1}, codec.Options{})
	f.opened = nil
	if err := f.dev.PrepareHardware(res); err != nil {
		t.Fatalf("PrepareHardware: %v", err)
	}
	if diff := cmp.Diff([]codec.Resource{res[1]}, f.opened); diff != "" {
		t.Errorf("opened mismatch (-want +got):\n%s", diff)
	}
	if f.dev.Model() != regmap.ModelMAX98512 || f.dev.UID() != 1 {
		t.Errorf("identity = %v/%d", f.dev.Model(), f.dev.UID())
	}
}

func TestPrepareOpenFailure(t *testing.T) {
	d := codec.New(codec.OpenerFunc(func(codec.Resource) (hardware.Transport, error) {
		return nil, errors.New("no such device")
	}), codec.Options{Firmware: &firmware.Table{HID: "MX98512"}, Logger: quietLogger()})
	err := d.PrepareHardware(i2cRes)
	if !errors.Is(err, models.ErrBus) {
		t.Fatalf("error = %v, want bus error", err)
	}
	if d.Identified() {
		t.Error("identified after open failure")
	}
}

func TestTeardownAlwaysPowersOff(t *testing.T) {
	f := prepared(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	f.mock.ResetLog()
	f.mock.FailAt(0x0100, hardware.OpWrite)

	if err := f.dev.D0Exit(); err != nil {
		t.Errorf("D0Exit returned %v, want nil", err)
	}
	if f.dev.PoweredOn() {
		t.Error("powered on after teardown")
	}
	if f.dev.State() != codec.PoweredOff {
		t.Errorf("state = %v, want powered-off", f.dev.State())
	}
	if !f.dev.Identified() {
		t.Error("identity lost on teardown")
	}
}

func TestTeardownWritesSoftReset(t *testing.T) {
	f := prepared(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}
	f.mock.ResetLog()
	if err := f.dev.D0Exit(); err != nil {
		t.Fatalf("D0Exit: %v", err)
	}
	if diff := cmp.Diff([]hardware.Transaction{w(0x0100, 0x01)}, f.mock.Log()); diff != "" {
		t.Errorf("teardown log mismatch (-want +got):\n%s", diff)
	}

	// A second cycle works from the torn-down state.
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("second D0Entry: %v", err)
	}
	if f.dev.State() != codec.PoweredOn {
		t.Errorf("state = %v, want powered-on", f.dev.State())
	}
}

func TestFailedReentryClearsPower(t *testing.T) {
	obs := &recordingObserver{}
	f := prepared(t, &firmware.Table{HID: "MX98512", UID: 1}, codec.Options{Right: 1, Observer: obs})
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}

	f.mock.FailAt(0x001A, hardware.OpWrite)
	if err := f.dev.D0Entry(); !errors.Is(err, models.ErrBus) {
		t.Fatalf("second D0Entry error = %v, want bus error", err)
	}
	if f.dev.PoweredOn() {
		t.Error("still powered on after an aborted bring-up")
	}
	if f.dev.State() == codec.PoweredOn {
		t.Errorf("state = %v after an aborted bring-up", f.dev.State())
	}
	if diff := cmp.Diff([]bool{true, false}, obs.power); diff != "" {
		t.Errorf("power events mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedRePrepareClearsPower(t *testing.T) {
	obs := &recordingObserver{}
	tbl := &firmware.Table{HID: "MX98512", UID: 1}
	f := prepared(t, tbl, codec.Options{Right: 1, Observer: obs})
	if err := f.dev.D0Entry(); err != nil {
		t.Fatalf("D0Entry: %v", err)
	}

	tbl.HID = "MX98927"
	if err := f.dev.PrepareHardware(i2cRes); !errors.Is(err, models.ErrUnrecognizedDevice) {
		t.Fatalf("PrepareHardware error = %v, want unrecognized device", err)
	}
	if f.dev.Identified() {
		t.Error("identified after failed re-prepare")
	}
	if f.dev.PoweredOn() {
		t.Error("powered on without a resolved identity")
	}
	if f.dev.State() != codec.Uninitialized {
		t.Errorf("state = %v, want uninitialized", f.dev.State())
	}
	if diff := cmp.Diff([]bool{true, false}, obs.power); diff != "" {
		t.Errorf("power events mismatch (-want +got):\n%s", diff)
	}
}

func TestSelfManagedInit(t *testing.T) {
	bus := events.NewBus()
	dsp := bus.Subscribe("dsp")
	f := newFixture(t, &firmware.Table{HID: "MX98512"}, codec.Options{Endpoints: bus})

	if err := f.dev.SelfManagedInit(); !errors.Is(err, models.ErrInvalidDeviceState) {
		t.Fatalf("SelfManagedInit before prepare: %v", err)
	}
	if err := f.dev.PrepareHardware(i2cRes); err != nil {
		t.Fatalf("PrepareHardware: %v", err)
	}
	if err := f.dev.SelfManagedInit(); err != nil {
		t.Fatalf("SelfManagedInit: %v", err)
	}
	select {
	case env := <-dsp:
		if env.From != f.dev.Endpoint().ID() || env.Endpoint != events.EndpointSpeaker || env.Request != events.RequestRegister {
			t.Errorf("announcement = %+v", env)
		}
	default:
		t.Fatal("no speaker announcement")
	}
}

func TestReleaseHardware(t *testing.T) {
	bus := events.NewBus()
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17}
	f := prepared(t, &firmware.Table{HID: "MX98512", UID: 1}, codec.Options{
		Endpoints: bus,
		Shutdown:  hardware.NewShutdownPin(pin, quietLogger()),
	})
	if pin.Read() != gpio.High {
		t.Error("shutdown line not released by prepare")
	}
	if err := f.dev.SelfManagedInit(); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.D0Entry(); err != nil {
		t.Fatal(err)
	}

	if err := f.dev.ReleaseHardware(); err != nil {
		t.Fatalf("ReleaseHardware: %v", err)
	}
	if !f.mock.Closed() {
		t.Error("bus not closed")
	}
	if pin.Read() != gpio.Low {
		t.Error("shutdown line not asserted")
	}
	if bus.SubscriberCount() != 0 {
		t.Error("endpoint still subscribed")
	}
	if f.dev.PoweredOn() {
		t.Error("powered on after release")
	}
	if !f.dev.Identified() || f.dev.UID() != 1 {
		t.Error("identity not retained after release")
	}
	if err := f.dev.D0Entry(); !errors.Is(err, models.ErrInvalidDeviceState) {
		t.Errorf("D0Entry after release: %v, want invalid device state", err)
	}
}

type recordingObserver struct {
	events []string
	power  []bool
}

func (r *recordingObserver) ObserveLifecycle(event string, err error) {
	if err != nil {
		event += "!"
	}
	r.events = append(r.events, event)
}

func (r *recordingObserver) ObservePower(uid uint32, on bool) {
	r.power = append(r.power, on)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	f := prepared(t, &firmware.Table{HID: "MX98512"}, codec.Options{Observer: obs})
	_ = f.dev.SelfManagedInit()
	_ = f.dev.D0Entry()
	_ = f.dev.D0Exit()
	f.mock.SetFailWrite(true)
	_ = f.dev.D0Entry()
	_ = f.dev.ReleaseHardware()

	want := []string{"prepare_hardware", "self_managed_init", "d0_entry", "d0_exit", "d0_entry!", "release_hardware"}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Errorf("lifecycle events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, obs.power); diff != "" {
		t.Errorf("power events mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpRegisters(t *testing.T) {
	f := newFixture(t, &firmware.Table{HID: "MX98512"}, codec.Options{})
	if _, err := f.dev.DumpRegisters(nil); !errors.Is(err, models.ErrInvalidDeviceState) {
		t.Fatalf("DumpRegisters before prepare: %v", err)
	}
	if err := f.dev.PrepareHardware(i2cRes); err != nil {
		t.Fatal(err)
	}
	f.mock.SetReg(0x01FF, 0x43)
	f.mock.SetReg(0x0020, 0x58)

	got, err := f.dev.DumpRegisters([]uint16{0x01FF, 0x0020})
	if err != nil {
		t.Fatalf("DumpRegisters: %v", err)
	}
	want := []regmap.Reg{{Addr: 0x01FF, Val: 0x43}, {Addr: 0x0020, Val: 0x58}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}

	all, err := f.dev.DumpRegisters(nil)
	if err != nil || len(all) != len(regmap.DumpAddrs) {
		t.Errorf("full dump = %d regs, %v", len(all), err)
	}

	f.mock.FailAt(0x0020, hardware.OpRead)
	part, err := f.dev.DumpRegisters([]uint16{0x01FF, 0x0020, 0x0038})
	if !errors.Is(err, models.ErrBus) || len(part) != 1 {
		t.Errorf("partial dump = %v, %v", part, err)
	}
}

func TestChannel(t *testing.T) {
	tbl := &firmware.Table{HID: "MX98512", UID: 1, Props: map[string]uint32{
		firmware.PropVmonSlot:   0x12, // only the low nibble counts
		firmware.PropImonSlot:   3,
		firmware.PropInterleave: 2,
	}}
	f := prepared(t, tbl, codec.Options{Right: 1})
	want := channel.Config{VmonSlot: 2, ImonSlot: 3, Interleave: false, RightChannel: true}
	if got := f.dev.Channel(); got != want {
		t.Errorf("Channel = %+v, want %+v", got, want)
	}
}
