package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/stencil/unit"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var disasm bool

	cmd := &cobra.Command{
		Use:   "inspect <archive> [unit]",
		Short: "Show statistics and disassembly for a unit archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := openArchive(args[0])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return inspectUnit(cmd, set, args[1], disasm)
			}
			return inspectAll(cmd, set, disasm)
		},
	}
	cmd.Flags().BoolVarP(&disasm, "disasm", "d", false, "include instruction disassembly")
	return cmd
}

func openArchive(path string) (*unit.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return unit.ReadArchive(f, info.Size())
}

func inspectAll(cmd *cobra.Command, set *unit.Set, disasm bool) error {
	names := set.Names()
	sort.Strings(names)

	heading := color.New(color.FgCyan, color.Bold).SprintFunc()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d units\n", heading("archive:"), set.Len())
	if delegates := set.DelegateNames(); len(delegates) > 0 {
		fmt.Fprintf(out, "%s %s\n", heading("delegates:"), strings.Join(delegates, ", "))
	}
	fmt.Fprintln(out)
	for _, name := range names {
		if err := inspectUnit(cmd, set, name, disasm); err != nil {
			return err
		}
	}
	return nil
}

func inspectUnit(cmd *cobra.Command, set *unit.Set, name string, disasm bool) error {
	u, err := set.ResolveUnit(name)
	if err != nil {
		return err
	}
	stats := u.Stats()

	title := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s %s\n", title(u.Name()), dim("("+u.Kind().String()+")"))
	fmt.Fprintf(out, "  bytes: %d  instructions: %d  constants: %d  fields: %d  suspension points: %d\n",
		stats.ByteSize, stats.InstructionCount, stats.ConstantCount,
		stats.FieldCount, stats.SuspensionPointCount)
	if n := u.ParamCount(); n > 0 {
		var params []string
		for i := 0; i < n; i++ {
			p := u.ParamAt(i)
			desc := p.Name
			if !p.Required {
				desc += "?"
			}
			if p.Lazy {
				desc += " (lazy)"
			}
			params = append(params, desc)
		}
		fmt.Fprintf(out, "  params: %s\n", strings.Join(params, ", "))
	}
	if disasm && u.Code() != nil {
		text, err := unit.DisassembleText(u.Code())
		if err != nil {
			return fmt.Errorf("disassemble %s: %w", u.Name(), err)
		}
		fmt.Fprintln(out, indent(text, "  "))
	}
	fmt.Fprintln(out)
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
