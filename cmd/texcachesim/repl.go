package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/gogpu/texcache/internal/sim"
)

const defaultMapping = "0x100000:0x80000:0x1000000"

var replCommands = []string{
	sim.OpSurface, sim.OpTexture, sim.OpColor, sim.OpDepth, sim.OpDraw,
	sim.OpInvalidate, sim.OpFlush, sim.OpBlit, sim.OpCPUWrite, sim.OpBarrier,
	"stats", "report", "help", "exit", "quit",
}

func runREPL(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		opts     common
		scenario = fs.StringP("scenario", "s", "", "scenario to replay before prompting")
		mappings = fs.StringArrayP("map", "m", nil, "GPU mapping gpu:cpu:size (repeatable)")
	)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := &sim.Scenario{Name: "repl"}
	if *scenario != "" {
		loaded, err := sim.LoadScenario(*scenario)
		if err != nil {
			return err
		}
		s = loaded
	}
	if len(*mappings) == 0 && len(s.Mappings) == 0 {
		*mappings = []string{defaultMapping}
	}
	for _, m := range *mappings {
		mapping, err := parseMapping(m)
		if err != nil {
			return err
		}
		s.Mappings = append(s.Mappings, mapping)
	}
	if err := opts.setup(stderr, s); err != nil {
		return err
	}

	runner, err := sim.NewRunner(s.Config, s.Mappings)
	if err != nil {
		return err
	}
	defer runner.Close()
	for _, op := range s.Ops {
		printResult(stdout, runner.Exec(op))
	}

	r := &repl{runner: runner, out: stdout}
	return r.loop()
}

type repl struct {
	runner *sim.Runner
	out    io.Writer
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".texcachesim_history")
}

func (r *repl) loop() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()
	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completer)
	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}
	defer r.saveHistory()

	fmt.Fprintln(r.out, "texcachesim - type 'help' for commands")
	for {
		line, err := r.liner.Prompt("texcache> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)
		if done := r.handle(line); done {
			return nil
		}
	}
}

// handle runs one REPL line and reports whether the session should end.
func (r *repl) handle(line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		printHelp(r.out)
	case "stats":
		rep := r.runner.Report()
		rep.Results = nil
		if err := printReport(r.out, rep); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	case "report":
		path := strings.TrimSpace(rest)
		if path == "" {
			fmt.Fprintln(r.out, "usage: report <file>")
			return false
		}
		if err := sim.WriteReport(path, r.runner.Report()); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	default:
		op, err := parseOp(cmd, rest)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return false
		}
		printResult(r.out, r.runner.Exec(op))
	}
	return false
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func completer(line string) []string {
	var out []string
	for _, c := range replCommands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			out = append(out, c)
		}
	}
	return out
}

// parseOp decodes "<kind> [jsonc operands]" into an op. The operands use the
// scenario op fields, for example: flush {"addr": "0x100000", "size": 4096}.
func parseOp(kind, operands string) (sim.Op, error) {
	var op sim.Op
	if operands = strings.TrimSpace(operands); operands != "" {
		standardized, err := hujson.Standardize([]byte(operands))
		if err != nil {
			return op, fmt.Errorf("invalid JSONC: %w", err)
		}
		if err := json.Unmarshal(standardized, &op); err != nil {
			return op, err
		}
	}
	op.Op = strings.ToLower(kind)
	return op, nil
}

func printResult(w io.Writer, res sim.OpResult) {
	if res.Error != "" {
		fmt.Fprintf(w, "#%d %s: error: %s\n", res.Index, res.Op, res.Error)
		return
	}
	fmt.Fprintf(w, "#%d %s: ok", res.Index, res.Op)
	if res.Barrier != nil {
		fmt.Fprintf(w, " barrier=%v", *res.Barrier)
	}
	fmt.Fprintln(w)
	for _, s := range res.Surfaces {
		if s == nil {
			fmt.Fprintln(w, "    <none>")
			continue
		}
		fmt.Fprintf(w, "    %#x %s %s %dx%dx%d levels=%d modified=%v rt=%v\n",
			uint64(s.GPU), s.Format, s.Target, s.Width, s.Height, s.Depth, s.Levels, s.Modified, s.RenderTarget)
	}
}

func printReport(w io.Writer, rep *sim.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `Commands:
  <op> [operands]   Run an op; operands are the JSONC fields of a scenario op
                    ops: surface texture color depth draw invalidate flush
                         blit cpu_write barrier
  stats             Print cache and backend counters
  report <file>     Write the session report
  help              Show this help
  exit              Leave
Example:
  color {"index": 0, "target": {"address": "0x100000", "width": 64, "height": 64, "format": "ABGR8U"}}
  draw {"colors": [0]}
`)
}
