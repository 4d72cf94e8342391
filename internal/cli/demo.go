package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/muhammadut/Finite-State-Machine/internal/logging"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
)

// DemoBinary is the input walked through by DemonstrateSteps in the default flow.
const DemoBinary = "1101"

// Example is one of the assignment inputs with its expected remainder.
type Example struct {
	Binary   string
	Expected int
}

// Examples are the inputs from the assignment.
var Examples = []Example{
	{Binary: "1101", Expected: 1},
	{Binary: "1110", Expected: 2},
	{Binary: "1111", Expected: 0},
}

// Options configures Execute.
type Options struct {
	// Binary, when set, is processed on its own and nothing else runs.
	Binary       string
	ExamplesOnly bool
	Interactive  bool

	In  io.Reader
	Out io.Writer

	// Render turns markdown into terminal output. Nil prints plain text.
	Render func(string) (string, error)
	Logger *slog.Logger
}

// Execute runs the mod-three demonstration the way the flags select it.
// Errors are printed to Out as "Error: ..." and also returned.
func Execute(opts Options) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	fmt.Fprintln(opts.Out, "=== Mod-Three FSM Demonstration ===")
	fmt.Fprintln(opts.Out, "This program demonstrates computing the remainder when a binary number is divided by 3.")

	if opts.Binary != "" {
		fmt.Fprintln(opts.Out)
		return ProcessBinary(opts.Out, opts.Binary, opts.Logger)
	}

	if err := RunExamples(opts.Out, opts.Logger); err != nil {
		return err
	}
	if opts.ExamplesOnly {
		return nil
	}

	if err := DemonstrateSteps(opts.Out, DemoBinary, opts.Render, opts.Logger); err != nil {
		return err
	}

	if opts.Interactive {
		return Interactive(opts.In, opts.Out, opts.Logger)
	}
	fmt.Fprintln(opts.Out, "\nRun with --interactive (-i) to enter interactive mode.")
	return nil
}

func newMachine(logger *slog.Logger) (*modthree.Machine, error) {
	return modthree.New(automaton.WithLogger[modthree.Remainder, rune](logger))
}

// decimal formats a validated binary string in base ten, whatever its length.
func decimal(binary string) string {
	n, ok := new(big.Int).SetString(binary, 2)
	if !ok {
		return "?"
	}
	return n.String()
}

func printResult(w io.Writer, binary string, remainder int) {
	fmt.Fprintf(w, "Binary: %s | Decimal: %s | Remainder mod 3: %d\n", binary, decimal(binary), remainder)
}

// ProcessBinary prints the remainder of binary, or the validation error.
func ProcessBinary(w io.Writer, binary string, logger *slog.Logger) error {
	m, err := newMachine(logger)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return err
	}
	remainder, err := m.Remainder(binary)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return err
	}
	printResult(w, binary, remainder)
	return nil
}

// RunExamples prints the assignment examples and checks each against its expected remainder.
// A failure is printed as "Error: ..." and returned.
func RunExamples(w io.Writer, logger *slog.Logger) error {
	fmt.Fprintln(w, "\n=== Examples from Assignment ===")

	if err := runExamples(w, logger); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return err
	}
	return nil
}

func runExamples(w io.Writer, logger *slog.Logger) error {
	m, err := newMachine(logger)
	if err != nil {
		return err
	}
	for _, ex := range Examples {
		remainder, err := m.Remainder(ex.Binary)
		if err != nil {
			return fmt.Errorf("example %s: %w", ex.Binary, err)
		}
		printResult(w, ex.Binary, remainder)
		if remainder != ex.Expected {
			return fmt.Errorf("example %s: expected %d, got %d", ex.Binary, ex.Expected, remainder)
		}
	}
	return nil
}

// StepRow is one line of the step-by-step transition table.
type StepRow struct {
	Step   int
	Input  rune
	Before modthree.Remainder
	After  modthree.Remainder
}

// Steps feeds binary one bit at a time and records every transition.
func Steps(binary string, logger *slog.Logger) ([]StepRow, *modthree.Machine, error) {
	if err := modthree.Validate(binary); err != nil {
		return nil, nil, err
	}
	m, err := newMachine(logger)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]StepRow, 0, len(binary))
	for i, bit := range binary {
		before := m.Current()
		after, err := m.Process(bit)
		if err != nil {
			return rows, m, err
		}
		rows = append(rows, StepRow{Step: i, Input: bit, Before: before, After: after})
	}
	return rows, m, nil
}

// DemonstrateSteps prints the transition table for binary followed by the final state.
// With a non-nil render the table is rendered as markdown.
func DemonstrateSteps(w io.Writer, binary string, render func(string) (string, error), logger *slog.Logger) error {
	fmt.Fprintln(w, "\n=== Using the Mod-Three Automaton ===")
	fmt.Fprintf(w, "Processing binary string: %s\n", binary)

	rows, m, err := Steps(binary, logger)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return err
	}

	fmt.Fprintln(w, "\nState Transitions:")
	table := plainTable(rows)
	if render != nil {
		if out, err := render(markdownTable(rows)); err == nil {
			table = out
		} else {
			logger.Warn("markdown render failed, falling back to plain text", "err", err)
		}
	}
	fmt.Fprint(w, table)

	final := m.Current()
	fmt.Fprintf(w, "\nFinal state: %s\n", final.Name())
	fmt.Fprintf(w, "Remainder when %s (decimal %s) is divided by 3: %d\n", binary, decimal(binary), final.Value())
	return nil
}

func plainTable(rows []StepRow) string {
	var b strings.Builder
	b.WriteString("Step | Input | State Before | State After\n")
	b.WriteString(strings.Repeat("-", 45) + "\n")
	for _, r := range rows {
		line := fmt.Sprintf("%4d | %-5c | %-12s | %s", r.Step, r.Input, r.Before.Name(), r.After.Name())
		b.WriteString(line + "\n")
	}
	return b.String()
}

func markdownTable(rows []StepRow) string {
	var b strings.Builder
	b.WriteString("| Step | Input | State Before | State After |\n")
	b.WriteString("|-----:|:-----:|--------------|-------------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %d | %c | %s | %s |\n", r.Step, r.Input, r.Before.Name(), r.After.Name())
	}
	return b.String()
}

// IsExit reports whether an interactive line ends the session.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// Interactive reads binary numbers from in until EOF or an exit command, printing each remainder.
// Invalid input is reported and the loop continues.
func Interactive(in io.Reader, out io.Writer, logger *slog.Logger) error {
	fmt.Fprintln(out, "\n=== Interactive Mode ===")
	fmt.Fprintln(out, "Enter binary numbers to compute their remainder mod 3 (or 'exit' to quit)")

	m, err := newMachine(logger)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter a binary number: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if IsExit(line) {
			return nil
		}

		remainder, err := m.Remainder(line)
		if err != nil {
			logger.Debug("interactive input rejected", "input", line, "err", err)
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printResult(out, line, remainder)
	}
}
