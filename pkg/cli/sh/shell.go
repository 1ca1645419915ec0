// Package sh provides an interactive console driving a simulated system.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/uart.go/pkg/env"
	"github.com/robotalks/uart.go/pkg/panel"
	"github.com/robotalks/uart.go/pkg/seq"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Sim    *Sim
}

const (
	shellKey = "$shell"
	prompt   = "uart > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&TypeCmd,
		&ReportCmd,
		&ResetCmd,
		&CountersCmd,
		&PressCmd,
		&DisplayCmd,
		&QueuesCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     time.Second,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Print prints v as JSON when OutputJSON is set, or text otherwise.
func (s *Shell) Print(c *ishell.Context, text string, v interface{}) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Type sends p from the terminal and prints the response.
func (s *Shell) Type(c *ishell.Context, p []byte) {
	out, err := s.Sim.Type(p, s.Timeout)
	if err != nil {
		c.Err(err)
		return
	}
	s.Print(c, strconv.Quote(out), map[string]string{"received": out})
}

// Start starts the simulated system.
func (s *Shell) Start() error {
	sim, err := StartSim(s.Config)
	if err != nil {
		return err
	}
	s.Sim = sim
	return nil
}

// Close stops the simulated system.
func (s *Shell) Close() error {
	if s.Sim == nil {
		return nil
	}
	err := s.Sim.Close()
	s.Sim = nil
	return err
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Start(); err != nil {
		log.Fatalf("start simulation failed: %v", err)
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Println("Simulated UART, type help for commands.")
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseText decodes Go escapes in the joined args, e.g. \r.
func ParseText(args []string) ([]byte, error) {
	text, err := strconv.Unquote(`"` + strings.Replace(strings.Join(args, " "), `"`, `\"`, -1) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid text: %v", err)
	}
	return []byte(text), nil
}

// ParseButtons parses button names BTN0..BTN3 or a number.
func ParseButtons(args []string) (panel.Buttons, error) {
	var buttons panel.Buttons
	for _, arg := range args {
		name := strings.ToUpper(arg)
		if strings.HasPrefix(name, "BTN") {
			n, err := strconv.Atoi(name[3:])
			if err != nil || n < 0 || n > 3 {
				return 0, fmt.Errorf("unknown button %q", arg)
			}
			buttons |= 1 << uint(n)
			continue
		}
		val, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid buttons %q", arg)
		}
		buttons |= panel.Buttons(val)
	}
	return buttons, nil
}

func (s *Shell) printDisplay(c *ishell.Context) {
	value, _ := s.Sim.Panel.Value()
	segs := panel.Encode(value)
	s.Print(c, fmt.Sprintf("%d [%#02x %#02x]", value, segs[1], segs[0]),
		&panel.DisplayState{Value: value, Segments: segs})
}

var (
	// TypeCmd types text on the terminal.
	TypeCmd = ishell.Cmd{
		Name:    "type",
		Aliases: []string{"t"},
		Help:    "'TEXT' (single quoted, escapes like \\r allowed)",
		Func: func(c *ishell.Context) {
			p, err := ParseText(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Type(c, p)
		},
	}

	// ReportCmd types the report sequence.
	ReportCmd = ishell.Cmd{
		Name: "report",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Type(c, seq.Report)
		},
	}

	// ResetCmd types the reset sequence.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Type(c, seq.Reset)
		},
	}

	// CountersCmd prints the counters.
	CountersCmd = ishell.Cmd{
		Name:    "counters",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			snapshot := s.Sim.System.Counters.Snapshot()
			s.Print(c, snapshot.String(), snapshot)
		},
	}

	// PressCmd holds panel buttons down, no args releases all.
	PressCmd = ishell.Cmd{
		Name:    "press",
		Aliases: []string{"p"},
		Help:    "[BTN0|BTN1|BTN2|BTN3|VALUE...]",
		Func: func(c *ishell.Context) {
			buttons, err := ParseButtons(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			_, updates := s.Sim.Panel.Value()
			s.Sim.Panel.Press(buttons)
			deadline := time.Now().Add(s.Timeout)
			for time.Now().Before(deadline) {
				if _, n := s.Sim.Panel.Value(); n > updates+1 {
					break
				}
				time.Sleep(time.Millisecond)
			}
			s.printDisplay(c)
		},
	}

	// DisplayCmd prints the display.
	DisplayCmd = ishell.Cmd{
		Name:    "display",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).printDisplay(c)
		},
	}

	// QueuesCmd prints the queue states.
	QueuesCmd = ishell.Cmd{
		Name:    "queues",
		Aliases: []string{"q"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			drv := s.Sim.System.Driver
			state := map[string]interface{}{
				"inbound":  drv.Inbound().Len(),
				"outbound": drv.Outbound().Len(),
				"capacity": drv.Inbound().Cap(),
				"tx_armed": drv.TxArmed(),
			}
			s.Print(c, fmt.Sprintf("inbound %d/%d outbound %d/%d tx-armed %v",
				drv.Inbound().Len(), drv.Inbound().Cap(),
				drv.Outbound().Len(), drv.Outbound().Cap(), drv.TxArmed()), state)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
