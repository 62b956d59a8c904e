package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/micro-nova/gmaxd/internal/channel"
	"github.com/micro-nova/gmaxd/internal/codec"
	"github.com/micro-nova/gmaxd/internal/config"
	"github.com/micro-nova/gmaxd/internal/endpoint"
	"github.com/micro-nova/gmaxd/internal/events"
	"github.com/micro-nova/gmaxd/internal/hardware"
	"github.com/micro-nova/gmaxd/internal/hotplug"
	"github.com/micro-nova/gmaxd/internal/identity"
	"github.com/micro-nova/gmaxd/internal/metrics"
	"github.com/micro-nova/gmaxd/internal/zeroconf"
)

type runCmd struct {
	cmdEnv
}

func (cmd *runCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, cmd.e)
}

// run wires the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, e *env) error {
	cfg, log := e.cfg, e.log
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	col, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("gmaxd: metrics: %w", err)
	}

	shutdown, err := hardware.OpenShutdownPin(cfg.ShutdownGPIO, log)
	if err != nil {
		return err
	}

	class := platformClass(cfg, log)
	bus := events.NewBus()
	opts := deviceOptions(cfg, log, class)
	opts.BusObserver = col
	opts.Observer = col
	opts.Endpoints = bus
	opts.Shutdown = shutdown
	if cfg.DBus.KeepAlive {
		keep, err := endpoint.DialLogind("gmaxd", log)
		if err != nil {
			log.Warn("gmaxd: logind unavailable, running without keep-alive", "err", err)
		} else {
			opts.KeepAlive = keep
		}
	}
	dev := codec.New(newOpener(cfg.Transport, log), opts)
	host := hotplug.New(dev, cfg.DevicePath(), resources(cfg), log)

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error("gmaxd: "+name+" stopped", "err", err)
			}
		}()
	}

	if cfg.DBus.Bridge {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			log.Warn("gmaxd: system bus unavailable, endpoint bridge disabled", "err", err)
		} else {
			defer conn.Close()
			spawn("endpoint bridge", endpoint.NewDBusBridge(conn, bus, log).Run)
		}
	}

	if cfg.Metrics.Listen != "" {
		exp, err := metrics.Listen(cfg.Metrics.Listen, metrics.NewRouter(reg, host.Status), log)
		if err != nil {
			return err
		}
		spawn("metrics exporter", exp.Serve)
		if cfg.Metrics.Advertise {
			spawn("zeroconf", zeroconf.New(identity.InstanceName(cfg.Metrics.Instance), exp.Port(), []string{
				"version=" + identity.GetVersion(),
				"transport=" + cfg.Transport.Kind,
				"platform=" + class.String(),
			}, log).Start)
		}
	}

	log.Info("gmaxd: starting", "version", identity.GetVersion(), "transport", cfg.Transport.Kind, "addr", fmt.Sprintf("0x%02x", cfg.Transport.Address), "watch", cfg.DevicePath())
	err = host.Run(ctx)
	cancel()
	wg.Wait()
	log.Info("gmaxd: stopped")
	return err
}

type probeCmd struct {
	cmdEnv
	Dump bool `long:"dump" description:"read back the diagnostic register set"`
}

// Execute identifies the amplifier and prints its record. The chip is never
// powered on.
func (cmd *probeCmd) Execute(_ []string) error {
	cfg, log, out := cmd.e.cfg, cmd.e.log, cmd.e.out

	shutdown, err := hardware.OpenShutdownPin(cfg.ShutdownGPIO, log)
	if err != nil {
		return err
	}
	opts := deviceOptions(cfg, log, platformClass(cfg, log))
	opts.Shutdown = shutdown
	dev := codec.New(newOpener(cfg.Transport, log), opts)

	if err := dev.PrepareHardware(resources(cfg)); err != nil {
		return err
	}
	defer func() {
		if err := dev.ReleaseHardware(); err != nil {
			log.Warn("gmaxd: release after probe", "err", err)
		}
	}()

	ch := dev.Channel()
	fmt.Fprintf(out, "model:      %s\n", dev.Model())
	fmt.Fprintf(out, "uid:        %d\n", dev.UID())
	fmt.Fprintf(out, "vmon slot:  %d\n", ch.VmonSlot)
	fmt.Fprintf(out, "imon slot:  %d\n", ch.ImonSlot)
	fmt.Fprintf(out, "interleave: %t\n", ch.Interleave)
	fmt.Fprintf(out, "right:      %t\n", ch.RightChannel)

	if !cmd.Dump {
		return nil
	}
	regs, err := dev.DumpRegisters(nil)
	for _, r := range regs {
		fmt.Fprintf(out, "0x%04x: 0x%02x\n", r.Addr, r.Val)
	}
	return err
}

type platformCmd struct {
	cmdEnv
}

func (cmd *platformCmd) Execute(_ []string) error {
	class := platformClass(cmd.e.cfg, cmd.e.log)
	fmt.Fprintf(cmd.e.out, "%s (right speaker uid %d)\n", class, channel.RightSpeakerIndex(class))
	return nil
}

type writeConfigCmd struct {
	cmdEnv
	Force bool `short:"f" long:"force" description:"overwrite an existing file"`
}

func (*writeConfigCmd) raw() {}

func (cmd *writeConfigCmd) Execute(_ []string) error {
	path := cmd.e.opts.ConfigPath
	if _, err := os.Stat(path); err == nil && !cmd.Force {
		return fmt.Errorf("gmaxd: %s exists, use --force to overwrite", path)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.e.out, "wrote %s\n", path)
	return nil
}
