// Command dcpu16 assembles, runs, and disassembles DCPU-16 programs. Its
// subcommand shape (one cobra.Command per verb, flags bound with
// cmd.Flags().*Var) follows the oisee-z80-optimizer CLI recorded in
// DESIGN.md.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunsided/dcpu-16/asm"
	"github.com/sunsided/dcpu-16/cpu"
	"github.com/sunsided/dcpu-16/disasm"
)

var (
	verbose bool
	logger  *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dcpu16",
		Short: "Assemble, run, and disassemble DCPU-16 programs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newAssembleCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDisasmCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAssembleCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "asm <source.dasm>",
		Short: "Assemble a source file into a raw big-endian word stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}
			words, err := asm.Assemble(string(source))
			if err != nil {
				return fmt.Errorf("assembling %s: %w", args[0], err)
			}
			logger.Debug("assembled program", "source", args[0], "words", len(words))

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				return writeWords(f, words)
			}
			return writeWords(out, words)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var dumpMemory int
	var wordsPerLine int
	cmd := &cobra.Command{
		Use:   "run <source.dasm>",
		Short: "Assemble and run a source file, printing final machine state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}
			words, err := asm.Assemble(string(source))
			if err != nil {
				return fmt.Errorf("assembling %s: %w", args[0], err)
			}

			c := cpu.New(words, cpu.WithLogger(logger))
			c.Run()

			fmt.Printf("PC=%04x SP=%04x O=%04x\n", c.PC, c.SP, c.O)
			for i, name := range []string{"A", "B", "C", "X", "Y", "Z", "I", "J"} {
				fmt.Printf("%s=%04x ", name, c.Register[i])
			}
			fmt.Println()

			if dumpMemory > 0 {
				return c.Hexdump(os.Stdout, dumpMemory, wordsPerLine)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&dumpMemory, "dump", 0, "hexdump the first N words of RAM after running")
	cmd.Flags().IntVar(&wordsPerLine, "words-per-line", 8, "words per hexdump line")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <program.bin>",
		Short: "Disassemble a raw big-endian word stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			words, err := readWords(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return disasm.Disassemble(words, 0, os.Stdout)
		},
	}
	return cmd
}

func writeWords(w io.Writer, words []uint16) error {
	return binary.Write(w, binary.BigEndian, words)
}

func readWords(r io.Reader) ([]uint16, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd byte count %d: not a whole number of 16-bit words", len(raw))
	}
	words := make([]uint16, len(raw)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
	}
	return words, nil
}
