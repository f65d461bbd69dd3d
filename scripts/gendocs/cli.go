package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/reetl/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envVars lists the REETL_ variables shown on the index page.
var envVars = [][2]string{
	{"REETL_SOURCE__PATH", "Source workbook path"},
	{"REETL_SQL_DIR", "Directory holding the SQL step files"},
	{"REETL_STATE_PATH", "Run history database path"},
	{"REETL_ENVIRONMENT", "Environment whose overrides apply"},
	{"REETL_TARGET__HOST", "Target database host"},
	{"REETL_TARGET__PASSWORD", "Target database password"},
	{"REETL_LOG_FORMAT", "Log format, text or json"},
}

// generateCLIDocs writes index.md and one page per documented command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	cmds := documentedCommands(root)

	if err := writePage(outDir, "index.md", cliIndex(root, cmds)); err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := writePage(outDir, cmd.Name()+".md", commandPage(cmd)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func documentedCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated %s", name)
	return nil
}

func cliIndex(root *cobra.Command, cmds []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for reetl")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("reetl loads the real estate workbook into raw tables, applies the SQL step files and records run history.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/reetl/cmd/reetl@latest\nreetl <command> [options]")

	w.Header(2, "Commands")
	rows := make([][]string, 0, len(cmds))
	for _, cmd := range cmds {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Configuration Precedence")
	w.Paragraph("Later sources override earlier ones:")
	w.BulletList([]string{
		"built-in defaults",
		InlineCode("reetl.yaml") + ", then the selected environment block",
		InlineCode("REETL_") + " variables, with " + InlineCode("__") + " between nested keys",
		"command-line flags",
	})

	env := make([][]string, 0, len(envVars))
	for _, v := range envVars {
		env = append(env, []string{InlineCode(v[0]), v[1]})
	}
	w.Table([]string{"Variable", "Description"}, env)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error, including a failed step (details on stderr)"},
	})
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	use := cmd.UseLine()
	if cmd.HasSubCommands() {
		use = fmt.Sprintf("reetl %s <subcommand> [options]", cmd.Name())
	}
	w.CodeBlock("bash", use)

	if cmd.HasSubCommands() {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if !sub.Hidden {
				rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
			}
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}
	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if def != "" && f.Value.Type() == "string" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
