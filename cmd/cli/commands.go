package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	stressdb "github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/db"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/load"
	"github.com/nickyhof/stressdb/ps"
	"github.com/spf13/cobra"
)

type importOptions struct {
	variant    string
	from       string
	notes      string
	sheet      string
	notesSheet string
	query      string
	notesQuery string
}

func newImportCmd(a *app) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a table variant into the store",
		Long: `Load a table variant and commit it into the git-backed store.

Without --from the variant's configured source is used. With --from the
source is picked from the location: a postgres:// DSN is queried, .xlsx
workbooks are read through DuckDB, anything else is read as CSV.
Locations may be local paths, http(s) URLs or s3://bucket/key.`,
		Example: `  stressdb import --baseDir ./tables --variant Table-1A --from table1a.csv --notes notes.csv
  stressdb import --baseDir ./tables --variant Table-3 --from tables.xlsx --sheet "Table 3" --notes-sheet Notes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := importLoader(a, opts)
			if err != nil {
				return err
			}

			txn, err := a.instance.Import(cmd.Context(), opts.variant, loader, a.identity())
			if err != nil {
				return err
			}
			if txn == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s✓ %s unchanged%s\n", SuccessColor, opts.variant, ResetColor)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Imported %s (%s)%s\n", SuccessColor, opts.variant, shortId(txn.Id), ResetColor)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.variant, "variant", "", "Table variant to import")
	flags.StringVar(&opts.from, "from", "", "Source location (file, URL or postgres DSN)")
	flags.StringVar(&opts.notes, "notes", "", "Notes sheet location, if separate from the table")
	flags.StringVar(&opts.sheet, "sheet", "", "Worksheet holding the table (xlsx)")
	flags.StringVar(&opts.notesSheet, "notes-sheet", "", "Worksheet holding the notes (xlsx)")
	flags.StringVar(&opts.query, "query", "", "Table query (postgres)")
	flags.StringVar(&opts.notesQuery, "notes-query", "", "Notes query (postgres)")
	_ = cmd.MarkFlagRequired("variant")
	return cmd
}

// importLoader picks the loader for an import: the configured source when
// --from is empty, otherwise one inferred from the location.
func importLoader(a *app, opts *importOptions) (load.Loader, error) {
	if opts.from == "" {
		for _, v := range a.cfg.Variants {
			if v.ID != opts.variant {
				continue
			}
			if v.Source == config.SourceGit {
				return nil, fmt.Errorf("variant %s is served from the store; use --from to name a source", v.ID)
			}
			return stressdb.NewLoader(v, a.cfg, a.instance.Persistence, a.logger)
		}
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownVariant, opts.variant)
	}

	v := config.VariantConfig{
		ID:         opts.variant,
		Path:       opts.from,
		NotesPath:  opts.notes,
		TableSheet: opts.sheet,
		NotesSheet: opts.notesSheet,
	}
	switch {
	case strings.HasPrefix(opts.from, "postgres://"), strings.HasPrefix(opts.from, "postgresql://"):
		v.Source = config.SourcePostgres
		v.Path = ""
		v.DSN = opts.from
		v.TableQuery = opts.query
		v.NotesQuery = opts.notesQuery
	default:
		switch strings.ToLower(filepath.Ext(opts.from)) {
		case ".xlsx":
			v.Source = config.SourceDuckDB
		default:
			v.Source = config.SourceCSV
		}
	}
	return stressdb.NewLoader(v, a.cfg, a.instance.Persistence, a.logger)
}

func newVariantsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the configured table variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := a.instance.Engine()
			result, err := engine.Execute(cmd.Context(), a.instance.NewSession(), "SHOW VARIANTS")
			if err != nil {
				return err
			}
			result.Display(cmd.OutOrStdout())
			return nil
		},
	}
}

type lookupOptions struct {
	variant     string
	selections  []string
	temperature float64
	strictNotes bool
	arrowPath   string
}

func newLookupCmd(a *app) *cobra.Command {
	opts := &lookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up the allowable stress for a material",
		Long: `Narrow a table variant with one or more attribute selections and
print the material details, the stress curve and, with --temp, the
interpolated stress at that temperature.`,
		Example: `  stressdb lookup --variant Table-1A --select SpecNo=SA-516 --select TypeGrade=70 --temp 150
  stressdb lookup --variant Table-1A --select "Spec No=SA-106" --arrow curve.arrow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.variant, "variant", "", "Table variant to search")
	flags.StringArrayVar(&opts.selections, "select", nil, "Attribute selection as attr=value (repeatable, applied in order)")
	flags.Float64Var(&opts.temperature, "temp", 0, "Design temperature in °C")
	flags.BoolVar(&opts.strictNotes, "strict-notes", false, "List unresolved note codes too")
	flags.StringVar(&opts.arrowPath, "arrow", "", "Also write the curve as Arrow IPC to this location")
	_ = cmd.MarkFlagRequired("variant")
	return cmd
}

func runLookup(cmd *cobra.Command, a *app, opts *lookupOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	engine := a.instance.Engine()
	session := a.instance.NewSession()

	if err := engine.Use(ctx, session, opts.variant); err != nil {
		return err
	}
	for _, selection := range opts.selections {
		attr, value, err := parseSelection(selection)
		if err != nil {
			return err
		}
		if err := engine.Select(ctx, session, attr, value); err != nil {
			return err
		}
	}

	statements := []string{"DESCRIBE", "SHOW CURVE"}
	if cmd.Flags().Changed("temp") {
		statements = append(statements, "INTERPOLATE "+strconv.FormatFloat(opts.temperature, 'f', -1, 64))
	}
	if opts.strictNotes {
		statements = append(statements, "SHOW NOTES STRICT")
	} else {
		statements = append(statements, "SHOW NOTES")
	}

	for _, statement := range statements {
		result, err := engine.Execute(ctx, session, statement)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s%s%s%s\n", BoldColor, PromptColor, statement, ResetColor)
		result.Display(out)
		fmt.Fprintln(out)
	}

	if opts.arrowPath != "" {
		cli := &CLI{engine: engine, session: session, s3: &a.cfg.S3, out: out}
		return cli.exportCurve(ctx, opts.arrowPath)
	}
	return nil
}

// parseSelection splits attr=value. The attribute name is matched loosely,
// so "Spec No", "spec_no" and "SpecNo" are the same.
func parseSelection(s string) (core.Attribute, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid selection %q: expected attr=value", s)
	}
	attr, err := core.ParseAttribute(strings.TrimSpace(name))
	if err != nil {
		return 0, "", err
	}
	return attr, strings.TrimSpace(value), nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var variant string
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the editions of a table variant in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history := a.instance.Persistence.TableHistory(variant)
			if len(history) == 0 {
				return fmt.Errorf("%w: %s", ps.ErrTableNotFound, variant)
			}
			if since > 0 {
				recent := make(map[string]bool)
				for _, txn := range a.instance.Persistence.TransactionsSince(time.Now().Add(-since)) {
					recent[txn.Id] = true
				}
				filtered := history[:0]
				for _, txn := range history {
					if recent[txn.Id] {
						filtered = append(filtered, txn)
					}
				}
				history = filtered
			}

			table := db.NewTable(cmd.OutOrStdout())
			table.Header([]string{"Commit", "When", "Author", "Message"})
			for _, txn := range history {
				table.Row([]string{shortId(txn.Id), txn.When.Format("2006-01-02 15:04:05"), txn.Author, txn.Message})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Table variant")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show editions committed within this duration (e.g. 24h)")
	_ = cmd.MarkFlagRequired("variant")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	var variant, commit string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a table variant to an earlier edition",
		Long: `Restore a table variant to the edition committed in --commit. The
restore is itself a new commit, so it can be undone the same way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asof, err := findTransaction(a.instance.Persistence.TableHistory(variant), commit)
			if err != nil {
				return err
			}
			txn, err := a.instance.Restore(variant, asof, a.identity())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Restored %s to %s (%s)%s\n",
				SuccessColor, variant, shortId(asof.Id), shortId(txn.Id), ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Table variant")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit id or unique prefix to restore")
	_ = cmd.MarkFlagRequired("variant")
	_ = cmd.MarkFlagRequired("commit")
	return cmd
}

// findTransaction matches a commit id or unique prefix in history.
func findTransaction(history []ps.Transaction, commit string) (ps.Transaction, error) {
	var found []ps.Transaction
	for _, txn := range history {
		if strings.HasPrefix(txn.Id, commit) {
			found = append(found, txn)
		}
	}
	switch len(found) {
	case 0:
		return ps.Transaction{}, fmt.Errorf("commit %s not found in table history", commit)
	case 1:
		return found[0], nil
	default:
		return ps.Transaction{}, fmt.Errorf("commit prefix %s is ambiguous", commit)
	}
}

func newPushCmd(a *app) *cobra.Command {
	var remote, branch string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push the table store to its remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote == "" {
				remote = a.cfg.Store.Remote
			}
			if err := a.instance.Persistence.Push(remote, branch, a.cfg.Store.Auth); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Pushed to %s%s\n", SuccessColor, remote, ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Remote name (defaults to store.remote)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to push (defaults to the current branch)")
	return cmd
}

func newPullCmd(a *app) *cobra.Command {
	var remote, branch string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull table editions from the store's remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote == "" {
				remote = a.cfg.Store.Remote
			}
			if err := a.instance.Persistence.Pull(remote, branch, a.cfg.Store.Auth); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Pulled from %s%s\n", SuccessColor, remote, ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Remote name (defaults to store.remote)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to pull")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch table editions without merging them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote == "" {
				remote = a.cfg.Store.Remote
			}
			if err := a.instance.Persistence.Fetch(remote, a.cfg.Store.Auth); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Fetched from %s%s\n", SuccessColor, remote, ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Remote name (defaults to store.remote)")
	return cmd
}

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the table store's remotes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.instance.Persistence.AddRemote(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Added remote %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remotes, err := a.instance.Persistence.ListRemotes()
			if err != nil {
				return err
			}
			table := db.NewTable(cmd.OutOrStdout())
			table.Header([]string{"Name", "URL"})
			for _, remote := range remotes {
				table.Row([]string{remote.Name, strings.Join(remote.URLs, ", ")})
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.instance.Persistence.RemoveRemote(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Removed remote %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	})
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var commit string

	cmd := &cobra.Command{
		Use:   "snapshot <name>",
		Short: "Tag the current edition of every table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var asof *ps.Transaction
			if commit != "" {
				asof = &ps.Transaction{Id: commit}
			}
			if err := a.instance.Persistence.Snapshot(args[0], asof); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Snapshot %s created%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}
	cmd.Flags().StringVar(&commit, "commit", "", "Full commit id to tag instead of HEAD")
	return cmd
}

func newRecoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <name>",
		Short: "Reset the whole store to a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.instance.Persistence.Recover(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s✓ Recovered snapshot %s%s\n", SuccessColor, args[0], ResetColor)
			return nil
		},
	}
}

func shortId(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
