// Command texcachesim replays guest GPU scenarios against the texture cache.
//
// Usage:
//
//	texcachesim run --scenario <file.jsonc> [--report <out.json>]
//	texcachesim repl [--scenario <file.jsonc>] [--map gpu:cpu:size]
//
// Common options:
//
//	-c, --config      JSONC cache configuration merged under the scenario's
//	    --accurate    Force accurate emulation
//	    --log-level   debug, info, warn or error (default: warn)
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/internal/sim"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "run":
		return runScenario(args[1:], stdout, stderr)
	case "repl":
		return runREPL(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  texcachesim run --scenario <file> [--report <file>]   Replay a scenario\n")
	fmt.Fprintf(w, "  texcachesim repl [--scenario <file>]                  Drive a cache interactively\n")
}

// common holds the options every command accepts.
type common struct {
	config   string
	accurate bool
	logLevel string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVarP(&c.config, "config", "c", "", "JSONC cache configuration file")
	fs.BoolVar(&c.accurate, "accurate", false, "force accurate emulation")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// setup installs the logger and merges the configuration file under the
// scenario's own config. Fields set in the scenario win.
func (c *common) setup(stderr io.Writer, scenario *sim.Scenario) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	texcache.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if c.config != "" {
		base, err := sim.LoadConfig(c.config)
		if err != nil {
			return err
		}
		scenario.Config = mergeConfig(base, scenario.Config)
	}
	if c.accurate {
		scenario.Config.AccurateEmulation = true
	}
	return nil
}

func mergeConfig(base, over texcache.Config) texcache.Config {
	out := base
	out.AccurateEmulation = base.AccurateEmulation || over.AccurateEmulation
	out.GuardRenderTargets = base.GuardRenderTargets || over.GuardRenderTargets
	out.GuardSamplers = base.GuardSamplers || over.GuardSamplers
	if over.ReserveLimit != nil {
		out.ReserveLimit = over.ReserveLimit
	}
	if over.StagingSlots > 0 {
		out.StagingSlots = over.StagingSlots
	}
	return out
}

func runScenario(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		opts     common
		scenario = fs.StringP("scenario", "s", "", "scenario file (JSONC)")
		report   = fs.StringP("report", "o", "", "write the JSON report to this file instead of stdout")
	)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenario == "" {
		if fs.NArg() < 1 {
			return errors.New("run: missing --scenario")
		}
		*scenario = fs.Arg(0)
	}

	s, err := sim.LoadScenario(*scenario)
	if err != nil {
		return err
	}
	if err := opts.setup(stderr, s); err != nil {
		return err
	}
	rep, err := sim.Run(s)
	if err != nil {
		return err
	}

	if *report == "" {
		return printReport(stdout, rep)
	}
	if err := sim.WriteReport(*report, rep); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d ops, %d failed, report written to %s\n",
		s.Name, len(rep.Results), rep.Failures, *report)
	return nil
}

// parseMapping parses gpu:cpu:size with each part in any strconv base.
func parseMapping(s string) (sim.Mapping, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return sim.Mapping{}, fmt.Errorf("mapping %q: want gpu:cpu:size", s)
	}
	var vals [3]uint64
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 0, 64)
		if err != nil {
			return sim.Mapping{}, fmt.Errorf("mapping %q: %w", s, err)
		}
		vals[i] = v
	}
	return sim.Mapping{GPU: sim.Addr(vals[0]), CPU: sim.Addr(vals[1]), Size: sim.Addr(vals[2])}, nil
}
