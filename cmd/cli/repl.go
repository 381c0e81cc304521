package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickyhof/stressdb/db"
	"github.com/nickyhof/stressdb/load"
	"github.com/spf13/cobra"
)

const maxHistory = 1000

var errQuit = errors.New("quit")

// CLI holds the interactive shell state
type CLI struct {
	engine      *db.Engine
	session     *db.Session
	s3          *load.S3Config
	out         io.Writer
	history     []string
	historyFile string
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive lookup shell",
		Long: `Start an interactive shell. Each line is one statement, for example:

  USE Table-1A
  SHOW OPTIONS SpecNo
  SELECT SpecNo = 'SA-516'
  INTERPOLATE 150

Lines starting with a dot are shell commands; type .help for a list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := &CLI{
				engine:      a.instance.Engine(),
				session:     a.instance.NewSession(),
				s3:          &a.cfg.S3,
				out:         cmd.OutOrStdout(),
				historyFile: getHistoryPath(),
			}
			cli.loadHistory()
			defer cli.saveHistory()

			printBanner(cli.out)
			cli.run(cmd.Context(), cmd.InOrStdin())
			return nil
		},
	}
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w)
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("stressdb v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Fprintf(w, "%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(w, "%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Fprintf(w, "%s%s║     Allowable Stress Lookup Shell     ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(w, "%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type .help for commands, .quit to exit")
	fmt.Fprintln(w)
}

func (cli *CLI) run(ctx context.Context, in io.Reader) {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(cli.out, cli.getPrompt())

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, ".") {
			if err := cli.handleCommand(ctx, input); errors.Is(err, errQuit) {
				fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
				return
			}
			continue
		}

		statement := strings.TrimSpace(strings.TrimSuffix(input, ";"))
		if statement == "" {
			continue
		}
		cli.addToHistory(statement)
		cli.execute(ctx, statement)
	}
}

func (cli *CLI) execute(ctx context.Context, statement string) {
	result, err := cli.engine.Execute(ctx, cli.session, statement)
	if err != nil {
		cli.printError(err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) printError(err error) {
	fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func (cli *CLI) getPrompt() string {
	variantPart := ""
	if cli.session.Variant != "" {
		variantPart = fmt.Sprintf(" (%s)", cli.session.Variant)
	}
	return fmt.Sprintf("%sstressdb%s>%s ", PromptColor, variantPart, ResetColor)
}

// handleCommand runs a dot command. It returns errQuit when the shell
// should exit.
func (cli *CLI) handleCommand(ctx context.Context, input string) error {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return nil
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		return errQuit

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".variants":
		cli.execute(ctx, "SHOW VARIANTS")

	case ".use":
		if len(parts) > 1 {
			cli.execute(ctx, "USE "+parts[1])
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .use <variant>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "stressdb version %s\n", Version)

	case ".export":
		if len(parts) > 1 {
			if err := cli.exportCurve(ctx, parts[1]); err != nil {
				cli.printError(err)
			}
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .export <path|s3://bucket/key>%s\n", ErrorColor, ResetColor)
		}

	case ".source":
		if len(parts) > 1 {
			if err := cli.sourceFile(ctx, parts[1]); err != nil {
				cli.printError(err)
			}
		} else {
			fmt.Fprintf(cli.out, "%s✗ Usage: .source <file>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Fprintf(cli.out, "%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return nil
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sShell Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h         Show this help message")
	fmt.Fprintln(w, "  .quit, .exit      Exit the shell")
	fmt.Fprintln(w, "  .variants         List table variants")
	fmt.Fprintln(w, "  .use <variant>    Switch to a table variant")
	fmt.Fprintln(w, "  .export <path>    Write the current curve as Arrow IPC")
	fmt.Fprintln(w, "  .source <file>    Execute statements from a file")
	fmt.Fprintln(w, "  .history          Show statement history")
	fmt.Fprintln(w, "  .clear            Clear the screen")
	fmt.Fprintln(w, "  .version          Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  SHOW VARIANTS")
	fmt.Fprintln(w, "  USE <variant>")
	fmt.Fprintln(w, "  SHOW OPTIONS <attribute>")
	fmt.Fprintln(w, "  SELECT <attribute> = '<value>'")
	fmt.Fprintln(w, "  CLEAR <attribute>")
	fmt.Fprintln(w, "  RESET")
	fmt.Fprintln(w, "  SHOW SELECTION")
	fmt.Fprintln(w, "  SHOW CANDIDATES [LIMIT n]")
	fmt.Fprintln(w, "  SHOW CURVE")
	fmt.Fprintln(w, "  INTERPOLATE <temperature>")
	fmt.Fprintln(w, "  SHOW NOTES [STRICT]")
	fmt.Fprintln(w, "  DESCRIBE")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sAttributes:%s Composition, Product, SpecNo, TypeGrade, Class, SizeTck\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w)
}

// exportCurve writes the session's aggregated curve to path as an Arrow
// IPC stream.
func (cli *CLI) exportCurve(ctx context.Context, path string) error {
	curve, err := cli.engine.Curve(ctx, cli.session)
	if err != nil {
		return err
	}
	if curve.Status != db.CurveOK {
		return fmt.Errorf("nothing to export: %s", curve.Status)
	}

	w, err := load.OpenWriter(ctx, path, cli.s3)
	if err != nil {
		return err
	}
	if err := db.WriteCurveIPC(w, curve.Curve); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cli.out, "%s✓ Exported %d points to %s%s\n", SuccessColor, curve.Curve.Len(), path, ResetColor)
	return nil
}

// sourceFile executes a file of statements, one per line. Blank lines and
// lines starting with -- are skipped.
func (cli *CLI) sourceFile(ctx context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0
	for i, line := range strings.Split(string(data), "\n") {
		statement := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if statement == "" || strings.HasPrefix(statement, "--") {
			continue
		}

		result, err := cli.engine.Execute(ctx, cli.session, statement)
		if err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(statement, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.QueryResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(statement, 50), len(r.Data), ResetColor)
		case db.SessionResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d candidates)%s\n", SuccessColor, i+1, truncate(statement, 50), r.Candidates, ResetColor)
		default:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(statement, 50), ResetColor)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Source complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)
	return nil
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stressdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > maxHistory {
		start = len(cli.history) - maxHistory
	}
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
