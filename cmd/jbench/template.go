package main

import (
	"fmt"
	"os"
	"strconv"

	"jbench/internal/expand"
	"jbench/internal/template"
	"jbench/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// renderWidth is the word wrap width of --render output.
const renderWidth = 100

func NewTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Fill a report template with live benchmark results",
		Long: `Replaces every ${group.category.name(param:value,...)[key]} macro of the
template with the measured value of key. Each distinct measurement is run
once, whatever the number of macros referencing it.

No output is written unless every measurement succeeded.`,
		Args: cobra.NoArgs,
		RunE: runTemplate,
	}

	cmd.Flags().StringP("executable", "e", "", "Path to the benchmark executable")
	cmd.Flags().StringP("template", "t", "", "Template file")
	cmd.Flags().StringP("output", "o", "-", "Output file, - for standard output")
	cmd.Flags().IntP("verbosity", "v", 1, "Verbosity passed to the benchmark executable (0-4)")
	cmd.Flags().IntP("count", "c", 1, "Measurements per macro, the minimum is kept")
	cmd.Flags().Bool("render", false, "Render markdown output for the terminal when writing to standard output")

	_ = cmd.MarkFlagRequired("executable")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

var templateCmd = NewTemplateCmd()

func init() {
	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, args []string) error {
	executable, _ := cmd.Flags().GetString("executable")
	templatePath, _ := cmd.Flags().GetString("template")
	output, _ := cmd.Flags().GetString("output")
	render, _ := cmd.Flags().GetBool("render")

	src, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	tpl, err := template.Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", templatePath, err)
	}

	verbosity := strconv.Itoa(viper.GetInt("template.verbosity"))
	e := expand.New(newRunner(executable, cmdMetrics, "--verbosity", verbosity), viper.GetInt("template.count"), cmd.ErrOrStderr())
	e.Metrics = cmdMetrics

	out, err := e.Expand(cmd.Context(), tpl)
	if err != nil {
		return err
	}

	if render && expand.IsStdout(output) {
		out = []byte(ui.RenderMarkdown(string(out), renderWidth))
	}
	return expand.WriteOutput(output, out, cmd.OutOrStdout())
}
