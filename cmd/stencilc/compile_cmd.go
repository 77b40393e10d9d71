package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/batch"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCompileCommand() *cobra.Command {
	var (
		configPath string
		output     string
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "compile [file set...]",
		Short: "Compile analyzed file sets into a unit archive",
		Long: `Compile reads analyzed template file sets (JSON documents produced by an
upstream analyzer) and packages the compiled units into a single archive.
Inputs and the output path may come from a stencil.toml project file; flags
and arguments override it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &projectConfig{}
			if loaded, err := loadProjectConfig(configPath); err == nil {
				cfg = loaded
			} else if !errors.Is(err, os.ErrNotExist) || configPath != defaultConfigFile {
				return err
			}
			inputs := cfg.Inputs
			if len(args) > 0 {
				inputs = args
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no input file sets (pass them as arguments or list them in %s)", defaultConfigFile)
			}
			if output == "" {
				output = cfg.Output
			}
			if output == "" {
				return fmt.Errorf("no output path (use --out or set output in %s)", defaultConfigFile)
			}
			if cmd.Flags().Changed("verify") {
				cfg.Verify = verify
			}
			return runCompile(cmd, inputs, output, cfg.Verify)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "project config file")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output archive path")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify stack effects during compilation")
	return cmd
}

func runCompile(cmd *cobra.Command, inputs []string, output string, verify bool) error {
	merged := &ast.FileSet{}
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fs, err := decodeFileSet(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		merged.Files = append(merged.Files, fs.Files...)
	}

	reporter := report.NewReporter()
	b, err := batch.New(batch.Config{
		FileSet:  merged,
		Reporter: reporter,
		Verify:   verify,
		Logger:   &logger,
	})
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	packErr := b.Package(cmd.Context(), out)
	printDiagnostics(cmd, reporter)
	if packErr != nil {
		return fmt.Errorf("compilation failed, nothing written to %s", output)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %d templates to %s\n",
		ok("compiled"), len(merged.Templates()), output)
	return nil
}

func printDiagnostics(cmd *cobra.Command, reporter *report.Reporter) {
	errLabel := color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel := color.New(color.FgYellow, color.Bold).SprintFunc()
	for _, d := range reporter.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warnLabel("warning:"), d.FriendlyErrorMessage())
	}
	for _, d := range reporter.Errors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errLabel("error:"), d.FriendlyErrorMessage())
	}
}
