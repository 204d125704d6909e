package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/supertypes/pkg/atm"
	"github.com/vito/supertypes/pkg/classpath"
	"github.com/vito/supertypes/pkg/ioctx"
	"github.com/vito/supertypes/pkg/project"
	"github.com/vito/supertypes/pkg/rpc"
	"github.com/vito/supertypes/pkg/supertypes"
)

// Config holds the application configuration
type Config struct {
	Debug      bool
	ConfigPath string
	Classpath  []string
}

func main() {
	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd(),
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "supertypes",
		Short: "Compute direct supertypes of annotated types",
		Long: `supertypes computes the direct supertypes of annotated types against a
hierarchy of class declarations loaded from TOML or YAML files.

The hierarchy and qualifier defaults are read from the nearest supertypes.toml.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(cmd.Context(), cfg)
			cmd.SetContext(ioctx.LoggerToContext(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfg.ConfigPath, "config", "", "Path to supertypes.toml (searched for by default)")
	cmd.PersistentFlags().StringSliceVar(&cfg.Classpath, "classpath", nil, "Hierarchy files, replacing the configured classpath")

	cmd.AddCommand(resolveCmd(&cfg), declsCmd(&cfg), serveCmd(&cfg))
	return cmd
}

func setupLogging(ctx context.Context, cfg Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	w := ioctx.StderrFromContext(ctx)
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}

	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: noColor,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadProject finds the project configuration and applies overrides from
// the environment and flags, in that order.
func loadProject(ctx context.Context, cfg Config) (*project.Config, error) {
	logger := ioctx.LoggerFromContext(ctx)

	var pc *project.Config
	if cfg.ConfigPath != "" {
		loaded, err := project.Load(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		pc = loaded
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, found, err := project.Find(cwd)
		if err != nil {
			return nil, err
		}
		if found != nil {
			logger.Debug("using project config", "path", path)
			pc = found
		} else {
			pc = project.Default(cwd)
		}
	}

	if err := pc.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if len(cfg.Classpath) > 0 {
		if err := pc.OverrideClasspath(cfg.Classpath); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func loadClasspath(ctx context.Context, cfg Config) (*project.Config, *classpath.Classpath, error) {
	pc, err := loadProject(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cp, err := pc.LoadClasspath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load classpath: %w", err)
	}
	ioctx.LoggerFromContext(ctx).Debug("loaded classpath", "declarations", len(cp.Decls()))
	return pc, cp, nil
}

type query struct {
	src  string
	decl string
}

func (q query) String() string {
	if q.decl != "" {
		return "declaration " + q.decl
	}
	return q.src
}

type resolution struct {
	subject string
	supers  []atm.Type
}

func resolveCmd(cfg *Config) *cobra.Command {
	var (
		decls []string
		dump  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [flags] [type...]",
		Short: "Print the direct supertypes of each type",
		Example: `  # Supertypes of a primitive and of a generic instantiation
  supertypes resolve '@NonNull int' 'java.util.ArrayList<String>'

  # Supertypes of a declaration's own generic type
  supertypes resolve --decl java.util.ArrayList

  # Print the full type structure
  supertypes resolve --dump 'String[]'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var queries []query
			for _, src := range args {
				queries = append(queries, query{src: src})
			}
			for _, name := range decls {
				queries = append(queries, query{decl: name})
			}
			if len(queries) == 0 {
				return fmt.Errorf("nothing to resolve: pass a type or --decl")
			}

			pc, cp, err := loadClasspath(ctx, *cfg)
			if err != nil {
				return err
			}
			finder := supertypes.New(cp, pc.Policy())

			results, err := resolveAll(ctx, cp, finder, queries)
			if err != nil {
				return err
			}

			out := ioctx.StdoutFromContext(ctx)
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, res.subject)
				if dump {
					pretty.Fprintf(out, "%# v\n", atm.DumpAll(res.supers))
					continue
				}
				for _, st := range res.supers {
					fmt.Fprintf(out, "  %s\n", st)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&decls, "decl", nil, "Resolve a declaration's own generic type")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the structure of each supertype")
	return cmd
}

// resolveAll resolves queries concurrently, each against its own freshly
// parsed type graph. Results keep the order of queries.
func resolveAll(ctx context.Context, cp *classpath.Classpath, finder *supertypes.Finder, queries []query) ([]resolution, error) {
	base := ioctx.LoggerFromContext(ctx)
	results := make([]resolution, len(queries))

	eg, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		eg.Go(func() error {
			logger := base.With("query", uuid.NewString())

			subject, err := cp.Subject(q.src, q.decl)
			if err != nil {
				return fmt.Errorf("%s: %w", q, err)
			}
			// resolution splices the subject's arguments into its supertypes
			label := subject.String()

			var supers []atm.Type
			err = supertypes.Guard(func() error {
				var err error
				supers, err = finder.DirectSupertypes(subject)
				return err
			})
			if err != nil {
				return fmt.Errorf("%s: %w", q, err)
			}

			logger.DebugContext(gctx, "resolved", "subject", label, "supertypes", len(supers))
			results[i] = resolution{subject: label, supers: supers}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func declsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "decls [prefix]",
		Short: "List the loaded declarations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, cp, err := loadClasspath(ctx, *cfg)
			if err != nil {
				return err
			}

			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}

			out := ioctx.StdoutFromContext(ctx)
			for _, decl := range cp.Decls() {
				if !strings.HasPrefix(string(decl.Name), prefix) {
					continue
				}
				fmt.Fprintln(out, cp.Describe(decl))
			}
			return nil
		},
	}
}

func serveCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve supertype queries as JSON-RPC 2.0 on stdin/stdout",
		Long: `Serve answers newline-delimited JSON-RPC 2.0 requests on stdin/stdout.

Methods:
  supertypes.direct  {"type": "List<String>"} or {"decl": "java.util.List"}
  supertypes.decls   lists the loaded declarations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pc, cp, err := loadClasspath(ctx, *cfg)
			if err != nil {
				return err
			}
			svc := rpc.NewService(cp, pc.Policy(), ioctx.LoggerFromContext(ctx))
			return serve(ctx, svc, channel.Line(os.Stdin, os.Stdout))
		},
	}
}

// serve answers requests on ch until it closes. Only a transport failure
// is returned; the peer hanging up is a normal shutdown.
func serve(ctx context.Context, svc *rpc.Service, ch channel.Channel) error {
	logger := ioctx.LoggerFromContext(ctx)
	srv := jrpc2.NewServer(svc.Methods(), &jrpc2.ServerOptions{
		Logger: func(text string) { logger.Debug(text) },
	})

	logger.InfoContext(ctx, "serving JSON-RPC")
	srv.Start(ch)
	err := srv.Wait()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, jrpc2.ErrConnClosed) {
		return errors.Wrap(err, "json-rpc server")
	}
	logger.DebugContext(ctx, "server closed")
	return nil
}
