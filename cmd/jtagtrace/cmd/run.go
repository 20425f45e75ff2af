package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jtagtrace/jtagtrace/pkg/armdebug"
	"github.com/jtagtrace/jtagtrace/pkg/buffer"
	"github.com/jtagtrace/jtagtrace/pkg/dapmodel"
	"github.com/jtagtrace/jtagtrace/pkg/drstate"
	"github.com/jtagtrace/jtagtrace/pkg/emitter"
	"github.com/jtagtrace/jtagtrace/pkg/jtag"
	"github.com/jtagtrace/jtagtrace/pkg/mpsse"
	"github.com/jtagtrace/jtagtrace/pkg/pcap"
	"github.com/jtagtrace/jtagtrace/pkg/replay"
	"github.com/jtagtrace/jtagtrace/pkg/zynqmodel"
)

var (
	jsonPcapPath      string
	openocdScript     string
	ftdiCommandsPath  string
	dapEnabledAtStart bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode a JSON packet capture and replay it into an OpenOCD script",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&jsonPcapPath, "json_pcap", "", "input JSON packet capture (required)")
	runCmd.Flags().StringVar(&openocdScript, "openocd_script", "", "output OpenOCD TCL transcript (required)")
	runCmd.Flags().StringVar(&ftdiCommandsPath, "ftdi_commands", "", "optional: dump decoded FTDI commands as JSON")
	runCmd.Flags().BoolVar(&dapEnabledAtStart, "dap_enabled_at_start", false, "DAP will_enable latch is armed before the first reset")

	runCmd.MarkFlagRequired("json_pcap")
	runCmd.MarkFlagRequired("openocd_script")
}

func runRun(cmd *cobra.Command, args []string) error {
	if verbose {
		fmt.Fprintln(os.Stderr, "Loading data")
	}
	f, err := os.Open(jsonPcapPath)
	if err != nil {
		return fmt.Errorf("jtagtrace: %w", err)
	}
	tx, rx, err := pcap.Read(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("jtagtrace: %w", err)
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Parsing data")
	}
	commands, err := mpsse.Decode(tx, rx)
	if err != nil {
		var decErr *mpsse.DecodeError
		if ok := asDecodeError(err, &decErr); ok {
			dumpDecodeFailure(decErr, tx, rx)
		}
		return fmt.Errorf("jtagtrace: decode failed: %w", err)
	}

	if ftdiCommandsPath != "" {
		if verbose {
			fmt.Fprintln(os.Stderr, "Writing FTDI commands to disk")
		}
		if err := dumpFtdiCommands(ftdiCommandsPath, commands); err != nil {
			return fmt.Errorf("jtagtrace: %w", err)
		}
	}

	out, err := os.Create(openocdScript)
	if err != nil {
		return fmt.Errorf("jtagtrace: %w", err)
	}
	defer out.Close()
	w := emitter.NewPlainWriter(out)

	var replayErr error
	if err := runReplay(commands, w); err != nil {
		replayErr = fmt.Errorf("jtagtrace: %w", err)
	}
	return replayErr
}

// asDecodeError unwraps err into a *mpsse.DecodeError if that's what it
// (or something it wraps) is.
func asDecodeError(err error, target **mpsse.DecodeError) bool {
	for err != nil {
		if de, ok := err.(*mpsse.DecodeError); ok {
			*target = de
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// dumpDecodeFailure prints everything needed to locate a decode failure
// in the capture: the offending byte, the next TX/RX frame, a context
// window around the cursor, and the commands back to the second-most-
// recent FLUSH.
func dumpDecodeFailure(e *mpsse.DecodeError, tx, rx *buffer.Buffer) {
	if e.HasLastByte {
		fmt.Fprintf(os.Stderr, "Failed decode at: 0x%02x\n", e.LastByte)
	}
	fmt.Fprintf(os.Stderr, "Next TX frame %d\n", tx.CurrentFrame())
	fmt.Fprintf(os.Stderr, "Next RX frame %d\n", rx.CurrentFrame())
	fmt.Fprintln(os.Stderr, "Context:")
	for _, entry := range e.Context {
		fmt.Fprintf(os.Stderr, "%+d 0x%02x\n", entry.Offset, entry.Byte)
	}

	if e.Commands == nil {
		return
	}
	flushCount := 0
	idx := 0
	for i := len(e.Commands) - 1; i >= 0; i-- {
		if e.Commands[i].Kind == mpsse.KindFlush {
			flushCount++
			if flushCount == 2 {
				idx = len(e.Commands) - i
				break
			}
		}
	}
	if idx == 0 {
		idx = len(e.Commands)
	}
	fmt.Fprintf(os.Stderr, "Last %d commands (2 flushes backward):\n", idx)
	for _, c := range e.Commands[len(e.Commands)-idx:] {
		fmt.Fprintf(os.Stderr, "%s\n", formatCommand(c))
	}
}

func formatCommand(c mpsse.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s opcode=0x%02x cf=%d l=%d", c.Kind, c.Opcode, c.CommandFrame, c.Length)
	if c.Flags != 0 {
		fmt.Fprintf(&b, " flags=[%s]", c.Flags)
	}
	if c.Data != nil {
		fmt.Fprintf(&b, " data=%s", hexColon(c.Data))
	}
	if c.HasReply {
		fmt.Fprintf(&b, " reply=%s", hexColon(c.Reply))
	}
	return b.String()
}

func hexColon(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// ftdiCommandJSON is the --ftdi_commands dump shape: enum names instead
// of raw ints, unset optional fields omitted.
type ftdiCommandJSON struct {
	Type         string   `json:"type"`
	Opcode       byte     `json:"opcode"`
	Flags        []string `json:"flags,omitempty"`
	Length       *int     `json:"length,omitempty"`
	CommandFrame int      `json:"command_frame"`
	ReplyFrame   *int     `json:"reply_frame,omitempty"`
	Data         string   `json:"data,omitempty"`
	Reply        string   `json:"reply,omitempty"`
}

func dumpFtdiCommands(path string, commands []mpsse.Command) error {
	out := make([]ftdiCommandJSON, 0, len(commands))
	for _, c := range commands {
		entry := ftdiCommandJSON{
			Type:         c.Kind.String(),
			Opcode:       c.Opcode,
			CommandFrame: c.CommandFrame,
		}
		if c.Flags != 0 {
			entry.Flags = flagNames(c.Flags)
		}
		if c.Length >= 0 {
			l := c.Length
			entry.Length = &l
		}
		if c.HasReply {
			rf := c.ReplyFrame
			entry.ReplyFrame = &rf
			entry.Reply = hexColon(c.Reply)
		}
		if c.Data != nil {
			entry.Data = hexColon(c.Data)
		}
		out = append(out, entry)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func flagNames(f mpsse.Flag) []string {
	var names []string
	for _, bit := range []mpsse.Flag{mpsse.NegEdgeOut, mpsse.Bitwise, mpsse.NegEdgeIn, mpsse.LSBFirst, mpsse.TDIHigh} {
		if f&bit != 0 {
			names = append(names, bit.String())
		}
	}
	return names
}

// runReplay wires the DAP/Zynq models, the ARM debug lifter and the
// emitter together and drives every decoded command through a
// replay.Engine.
func runReplay(commands []mpsse.Command, w *emitter.Writer) (err error) {
	defer func() {
		// dapmodel/zynqmodel panic on illegal IR/IR-combination decode
		// and on DRCAPTURE of a state that has none — these are
		// assertion-class failures in the capture or model coverage, not
		// Go runtime bugs, so surface them as a plain CLI error.
		if r := recover(); r != nil {
			err = fmt.Errorf("illegal JTAG transition: %v", r)
		}
	}()

	decoder := armdebug.NewDecoder(func(e armdebug.Event) {
		if err := w.HandleEvent(e); err != nil {
			fmt.Fprintf(os.Stderr, "jtagtrace: %v\n", err)
		}
	})

	dapIDCodeSeen := false
	dap := dapmodel.NewModel(func(state drstate.State, value uint64) {
		if state == drstate.IDCode && !dapIDCodeSeen {
			dapIDCodeSeen = true
			w.HandleDAPIDCode(uint32(value))
		}
		if err := decoder.DRAccess(state, value); err != nil {
			fmt.Fprintf(os.Stderr, "jtagtrace: %v\n", err)
		}
	}, dapEnabledAtStart)

	zynq := zynqmodel.NewModel(dap, w.HandleZynqDR, w.HandleZynqIR)
	chain := jtag.NewChain(zynq, dap)
	engine := replay.NewEngine(chain)

	for idx, c := range commands {
		if verbose {
			fmt.Fprintf(os.Stderr, "%8d %-24s opcode=0x%02x cf=%8d l=%d\n",
				idx, c.Kind, c.Opcode, c.CommandFrame, c.Length)
			if c.Kind == mpsse.KindFlush {
				for i := 0; i < 3; i++ {
					fmt.Fprintln(os.Stderr, "*** FLUSH ***")
				}
			}
			if c.Flags != 0 {
				fmt.Fprintf(os.Stderr, "Flags: [%s]\n", c.Flags)
			}
			if c.Data != nil {
				fmt.Fprintf(os.Stderr, "Command: %s\n", hexColon(c.Data))
			}
		}

		output, err := engine.Run(c)
		if err != nil {
			return fmt.Errorf("command %d (%s): %w", idx, c.Kind, err)
		}

		if verbose && c.HasReply {
			fmt.Fprintf(os.Stderr, "Real Reply(rf=%8d): %s\n", c.ReplyFrame, hexColon(c.Reply))
			fmt.Fprintf(os.Stderr, " Sim Reply          : %s\n", hexColon(output))
		}
	}
	return nil
}
