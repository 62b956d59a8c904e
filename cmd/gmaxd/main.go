// Command gmaxd brings up MAX98512 smart amplifiers and keeps them powered
// for as long as their bus is present.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/micro-nova/gmaxd/internal/config"
)

type mainOpts struct {
	ConfigPath string `short:"c" long:"config" default:"/etc/gmaxd/gmaxd.yml" description:"daemon config file"`
	Debug      bool   `short:"d" long:"debug" description:"enable debug logging"`
	JSONLogs   bool   `short:"j" long:"json-logs" description:"emit logs as JSON"`
	Mock       bool   `long:"mock" description:"use an in-memory register file instead of the bus"`

	Run         runCmd         `command:"run" description:"attach to the amplifier and keep it powered"`
	Probe       probeCmd       `command:"probe" description:"identify the amplifier without powering it on"`
	Platform    platformCmd    `command:"platform" description:"print the detected platform class"`
	WriteConfig writeConfigCmd `command:"write-config" description:"write the default configuration to --config"`
}

// env is what every command receives once global options are applied.
type env struct {
	opts *mainOpts
	cfg  *config.Config
	log  *slog.Logger
	out  io.Writer
}

type envSetter interface {
	setEnv(*env)
}

type cmdEnv struct {
	e *env
}

func (c *cmdEnv) setEnv(e *env) { c.e = e }

// rawCmd commands run before the config file is loaded.
type rawCmd interface {
	raw()
}

func main() {
	if err := parseOpts(os.Args[1:], &mainOpts{}, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func parseOpts(args []string, opts *mainOpts, out, logOut io.Writer) error {
	p := flags.NewParser(opts, flags.Default)
	p.SubcommandsOptional = false
	p.CommandHandler = func(cmd flags.Commander, cmdArgs []string) error {
		if len(cmdArgs) > 0 {
			return fmt.Errorf("unexpected commandline arguments: %v", cmdArgs)
		}
		e := &env{opts: opts, out: out}
		if _, ok := cmd.(rawCmd); ok {
			e.cfg = config.DefaultConfig()
		} else {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
		}
		if opts.Mock {
			e.cfg.Transport.Kind = config.TransportMock
		}
		e.log = newLogger(e.cfg, opts.Debug, opts.JSONLogs, logOut)
		slog.SetDefault(e.log)
		if s, ok := cmd.(envSetter); ok {
			s.setEnv(e)
		}
		return cmd.Execute(cmdArgs)
	}

	_, err := p.ParseArgs(args)
	return err
}

// newLogger builds the process logger. --debug and --json-logs override the
// config file.
func newLogger(cfg *config.Config, debug, jsonLogs bool, w io.Writer) *slog.Logger {
	level := cfg.LogLevel.Level()
	if debug {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if jsonLogs || cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
