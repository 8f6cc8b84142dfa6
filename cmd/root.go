package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/beyondbrewing/brewery-odm/config"
	"github.com/beyondbrewing/brewery-odm/model"
	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/beyondbrewing/brewery-odm/schema"
	"github.com/beyondbrewing/brewery-odm/store"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand.
type options struct {
	configFile string
	backend    string
	path       string
	dsn        string
	logLevel   string

	schemaFile string
	collection string

	id             string
	skipValidation bool
	raw            bool

	where       []string
	order       string
	limit       int
	limitToLast int
	offset      int
	startAfter  string
	endBefore   string
}

// app is what PersistentPreRunE builds for a command run.
type app struct {
	opts     *options
	out      io.Writer
	client   *store.Client
	model    *model.Model
	registry *prometheus.Registry
	logger   logger.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	a := &app{opts: opts, out: out}

	root := &cobra.Command{
		Use:   "odm",
		Short: "Schema-validated document store CLI",
		Long: `odm reads and writes documents of one collection, validating writes
against a schema definition file (YAML or JSON).

Examples:
  odm --schema users.yaml --collection users create '{"name":"Ana"}'
  odm --collection users get 3f1c...
  odm --collection users find --where 'age>=18' --order name:asc --limit 10
  odm --schema users.yaml --collection users update 3f1c... '{"age":31}'
  odm --collection users delete 3f1c...`,
		Version:           config.APP_VERSION,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (yaml, json, toml)")
	pf.StringVar(&opts.backend, "backend", "", "Backend: memory|pebble|sqlite|file|postgres (overrides ODM_BACKEND)")
	pf.StringVar(&opts.path, "path", "", "Data path for pebble, sqlite and file backends (overrides ODM_PATH)")
	pf.StringVar(&opts.dsn, "dsn", "", "Postgres connection string (overrides ODM_DSN)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides ODM_LOG_LEVEL)")
	pf.StringVarP(&opts.schemaFile, "schema", "s", "", "Schema definition file")
	pf.StringVarP(&opts.collection, "collection", "c", "", "Collection name (required)")
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetVersionTemplate(config.APP_NAME + " {{.Version}}\n")

	root.AddCommand(
		a.createCmd(),
		a.getCmd(),
		a.findCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.validateCmd(),
	)
	for _, cmd := range root.Commands() {
		cmd.RunE = a.closing(cmd.RunE)
	}
	return root
}

// closing releases the client after run, whether or not it failed.
func (a *app) closing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.teardown(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) setup(ctx context.Context) error {
	if a.opts.collection == "" {
		return errors.New("--collection is required")
	}
	cfg, err := config.Load(a.opts.configFile)
	if err != nil {
		return err
	}
	override(&cfg.Backend, a.opts.backend)
	override(&cfg.Path, a.opts.path)
	override(&cfg.DSN, a.opts.dsn)
	override(&cfg.LogLevel, a.opts.logLevel)

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	log = log.With("app", config.APP_NAME)
	logger.SetDefault(log)
	a.logger = log.With("component", "cli")

	bcfg := store.BackendConfig{Name: cfg.Backend, Path: cfg.Path, DSN: cfg.DSN, Logger: log}
	if cfg.Metrics {
		a.registry = prometheus.NewRegistry()
		bcfg.Registerer = a.registry
	}
	if a.client, err = store.Open(ctx, bcfg); err != nil {
		return err
	}

	if err := a.newModel(); err != nil {
		_ = a.teardown()
		return err
	}
	return nil
}

func (a *app) newModel() error {
	s := schema.New(schema.Container{})
	if a.opts.schemaFile != "" {
		tree, err := schema.LoadFile(a.opts.schemaFile)
		if err != nil {
			return err
		}
		s = schema.New(tree)
	}

	m, err := model.New(a.opts.collection, s, a.client)
	if err != nil {
		return err
	}
	a.model = m
	return nil
}

func (a *app) teardown() error {
	if a.client == nil {
		return nil
	}
	a.reportMetrics()
	c := a.client
	a.client = nil
	return c.Close()
}

// reportMetrics logs every gathered sample when metrics are enabled.
func (a *app) reportMetrics() {
	if a.registry == nil {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			kv := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				kv = append(kv, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				kv = append(kv, "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				kv = append(kv, "count", m.GetHistogram().GetSampleCount(), "sum", m.GetHistogram().GetSampleSum())
			}
			a.logger.Info("metric", kv...)
		}
	}
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

func (a *app) requireSchema() error {
	if a.opts.schemaFile == "" {
		return errors.New("--schema is required for this command")
	}
	return nil
}

func (a *app) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

func (a *app) printSnapshot(s *store.DocumentSnapshot) error {
	return a.print(rawSnapshot(s))
}

func rawSnapshot(s *store.DocumentSnapshot) map[string]any {
	return map[string]any{
		"path":   s.Ref.Path(),
		"exists": s.Exists(),
		"data":   s.Data(),
	}
}

func (a *app) createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <json>",
		Short: "Validate and store a new document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.opts.skipValidation {
				if err := a.requireSchema(); err != nil {
					return err
				}
			}
			doc, err := parseDocument(args[0])
			if err != nil {
				return err
			}
			opts := a.writeOptions()
			if a.opts.id != "" {
				opts = append(opts, model.WithID(a.opts.id))
			}

			if a.opts.raw {
				ref, err := a.model.CreateRaw(cmd.Context(), doc, opts...)
				if err != nil {
					return err
				}
				return a.print(map[string]any{"path": ref.Path()})
			}
			rec, err := a.model.Create(cmd.Context(), doc, opts...)
			if err != nil {
				return err
			}
			return a.print(rec)
		},
	}
	cmd.Flags().StringVar(&a.opts.id, "id", "", "Explicit document id")
	cmd.Flags().BoolVar(&a.opts.raw, "raw", false, "Print the store reference instead of the record")
	a.writeFlags(cmd)
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one document, or null when it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts.raw {
				snap, err := a.model.FindByIDRaw(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printSnapshot(snap)
			}
			rec, err := a.model.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(rec)
		},
	}
	cmd.Flags().BoolVar(&a.opts.raw, "raw", false, "Print the store snapshot instead of the record")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Query documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := a.model.Find()
			for _, expr := range a.opts.where {
				c, err := parseWhere(expr)
				if err != nil {
					return err
				}
				q = q.Where(c.field, c.op, c.value)
			}
			if a.opts.order != "" {
				field, dir, err := parseOrder(a.opts.order)
				if err != nil {
					return err
				}
				q = q.OrderBy(field, dir)
			}
			q = q.Limit(a.opts.limit).LimitToLast(a.opts.limitToLast).Offset(a.opts.offset)
			if a.opts.startAfter != "" {
				q = q.StartAfter(parseValue(a.opts.startAfter))
			}
			if a.opts.endBefore != "" {
				q = q.EndBefore(parseValue(a.opts.endBefore))
			}

			if a.opts.raw {
				snaps, err := q.ExecuteRaw(cmd.Context())
				if err != nil {
					return err
				}
				out := make([]map[string]any, len(snaps))
				for i, s := range snaps {
					out[i] = rawSnapshot(s)
				}
				return a.print(out)
			}
			recs, err := q.Execute(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(recs)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&a.opts.where, "where", "w", nil, "Filter such as 'age>=18' or 'tags array-contains go' (repeatable)")
	f.StringVarP(&a.opts.order, "order", "o", "", "Sort as field[:asc|desc]")
	f.IntVarP(&a.opts.limit, "limit", "n", 0, "Maximum number of results")
	f.IntVar(&a.opts.limitToLast, "limit-to-last", 0, "Maximum number of results, taken from the end (needs --order)")
	f.IntVar(&a.opts.offset, "offset", 0, "Number of results to skip")
	f.StringVar(&a.opts.startAfter, "start-after", "", "Start after this value of the order field")
	f.StringVar(&a.opts.endBefore, "end-before", "", "End before this value of the order field")
	f.BoolVar(&a.opts.raw, "raw", false, "Print store snapshots instead of records")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <json>",
		Short: "Validate and merge fields into a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.opts.skipValidation {
				if err := a.requireSchema(); err != nil {
					return err
				}
			}
			doc, err := parseDocument(args[1])
			if err != nil {
				return err
			}
			id, err := a.model.UpdateByID(cmd.Context(), args[0], doc, a.writeOptions()...)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"id": id})
		},
	}
	a.writeFlags(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.model.DeleteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(map[string]any{"id": id})
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <json>",
		Short: "Validate a partial document without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSchema(); err != nil {
				return err
			}
			doc, err := parseDocument(args[0])
			if err != nil {
				return err
			}
			out, err := a.model.Validate(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return a.print(out)
		},
	}
}

func (a *app) writeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.opts.skipValidation, "skip-validation", false, "Store the document without schema validation")
}

func (a *app) writeOptions() []model.WriteOption {
	if a.opts.skipValidation {
		return []model.WriteOption{model.SkipValidation()}
	}
	return nil
}
