// Command ucnc-console is a developer/test harness for the motion-control
// core. Commands always drive an in-process controller over the simulated
// HAL. With -device set, command lines are read as CRC-framed lines from that
// serial connection; left empty, they are read from stdin. Replies print to
// stdout either way. It accepts a small line-oriented command language --
// not a G-code parser, which stays out of scope for this harness.
//
// Supported lines:
//
//	line X10 Y0 F600     move to the given target at the given feed (mm/min)
//	home [axis]          run the homing script, or a single axis (X/Y/Z/...)
//	probe Z-10 [F100]    probe toward the given target
//	status               print the current position
//	quit                 close the console
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"ucnc/hal"
	"ucnc/interpolator"
	"ucnc/internal/debug"
	"ucnc/internal/sched"
	"ucnc/kinematics"
	"ucnc/link"
	"ucnc/motion"
	"ucnc/planner"
	"ucnc/settings"
)

var (
	device  = flag.String("device", "", "serial device path (e.g. /dev/ttyACM0) to read framed command lines from; empty reads stdin")
	baud    = flag.Int("baud", 250000, "baud rate (ignored by USB CDC boards)")
	verbose = flag.Bool("verbose", false, "enable debug logging")
)

type logPulser struct{}

func (logPulser) Step(actuator int, negative bool) {
	dir := "+"
	if negative {
		dir = "-"
	}
	debug.Println(fmt.Sprintf("step actuator=%d dir=%s", actuator, dir))
}

func main() {
	flag.Parse()
	if *verbose {
		debug.SetEnabled(true)
		debug.SetWriter(func(s string) { fmt.Fprintln(os.Stderr, "[debug]", s) })
	}

	s := settings.Default()
	kin := kinematics.NewCartesian(s)
	queue := planner.New(32, 0, 0)
	clock := sched.NewClock()
	sim := hal.NewSim()
	sim.CNCSetExecState(hal.ExecRun)
	interp := interpolator.New(clock, queue, logPulser{}, sim, kin.StepperCount(), 1_000_000)

	ctl := motion.New(kin, s, queue, interp, sim)
	ctl.Init()

	var tr *link.Transport
	if *device != "" {
		fmt.Printf("Connecting to %s...\n", *device)
		var err error
		tr, err = link.Open(link.Config{Device: *device, Baud: *baud})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer tr.Close()
	} else {
		tr = link.WrapReadWriteCloser(stdinOut{})
	}

	fmt.Println("ucnc-console -- type 'help' for commands, 'quit' to exit")
	for {
		fmt.Print("> ")
		line, err := tr.ReadLine()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens, err := shlex.Split(line)
		if err != nil || len(tokens) == 0 {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
			continue
		}

		if done := dispatch(ctl, interp, kin, s, tokens); done {
			break
		}
	}
}

// stdinOut adapts os.Stdin/os.Stdout into the io.ReadWriteCloser the
// Transport expects, used when --device is left empty.
type stdinOut struct{}

func (stdinOut) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdinOut) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdinOut) Close() error                { return nil }

func dispatch(ctl *motion.Controller, interp *interpolator.Interpolator, kin kinematics.Kinematics, s *settings.Settings, tokens []string) (quit bool) {
	switch strings.ToLower(tokens[0]) {
	case "quit", "exit", "q":
		fmt.Println("bye")
		return true

	case "help", "?":
		printHelp()

	case "status":
		pos := make([]float64, kin.AxisCount())
		ctl.GetPosition(pos)
		fmt.Printf("position: %v\n", pos)

	case "home":
		status := homeCommand(ctl, kin, s, tokens[1:])
		fmt.Printf("home -> %s\n", status)

	case "line":
		target, feed, err := parseMove(kin, s, tokens[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		block := planner.NewBlock(kin.StepperCount(), kin.AxisCount())
		block.Feed = feed
		block.MotionMode = planner.FlagFeed
		status := ctl.Line(target, block)
		interp.Sync()
		fmt.Printf("line -> %s\n", status)

	case "probe":
		target, feed, err := parseMove(kin, s, tokens[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		block := planner.NewBlock(kin.StepperCount(), kin.AxisCount())
		block.Feed = feed
		block.MotionMode = planner.FlagFeed
		status := ctl.Probe(target, 0, block)
		interp.Sync()
		fmt.Printf("probe -> %s\n", status)

	default:
		fmt.Printf("unknown command: %s (type 'help')\n", tokens[0])
	}
	return false
}

func homeCommand(ctl *motion.Controller, kin kinematics.Kinematics, s *settings.Settings, args []string) motion.Status {
	if len(args) == 0 {
		return ctl.Home()
	}
	letter := strings.ToUpper(args[0])
	for i, name := range s.Descriptor.AxisNames {
		if name == letter {
			return ctl.HomeAxis(i, 1<<uint(i))
		}
	}
	fmt.Fprintf(os.Stderr, "unknown axis: %s\n", args[0])
	return motion.CriticalFail
}

// parseMove reads a target position and an optional feed rate from tokens
// shaped like ["X10", "Y0", "F600"]. Axes not named are set to 0, not to the
// controller's current position. F is read in mm/min and returned in mm/s;
// without F the feed is 100 mm/s.
func parseMove(kin kinematics.Kinematics, s *settings.Settings, tokens []string) ([]float64, float64, error) {
	target := make([]float64, kin.AxisCount())
	feed := 100.0
	names := s.Descriptor.AxisNames

	axisSeen := false
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		letter := strings.ToUpper(tok[:1])
		value, err := strconv.ParseFloat(tok[1:], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("bad token %q: %w", tok, err)
		}
		if letter == "F" {
			feed = value / 60.0 // mm/min on the command line, mm/s to the controller
			continue
		}
		found := false
		for i, name := range names {
			if name == letter {
				target[i] = value
				found = true
				axisSeen = true
				break
			}
		}
		if !found {
			return nil, 0, fmt.Errorf("unknown axis letter %q", letter)
		}
	}
	if !axisSeen {
		return nil, 0, fmt.Errorf("no axis given")
	}
	return target, feed, nil
}

func printHelp() {
	fmt.Println(`
Available commands:
  line X10 Y0 F600   move to the given target at the given feed (mm/min)
  home [axis]         run the homing script, or a single axis
  probe Z-10 [F100]   probe toward the given target
  status              print the current position
  help                show this message
  quit                exit`)
}
