package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pqx/internal/format"
	"pqx/internal/store"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X pqx/internal/cli.Version=...".
var Version = "dev"

type App struct {
	PageSize   int
	PrettyJSON bool
	Format     string
	Verbose    bool
	Backup     bool

	// Store is the columnar store commands read and write. Tests swap it.
	Store store.ColumnarStore
}

func NewRootCmd() *cobra.Command {
	app := &App{Store: store.Parquet{}}

	cmd := &cobra.Command{
		Use:          "pqx",
		Short:        "Browse, filter and edit parquet files page by page",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open a file in the interactive viewer
  pqx data.parquet

  # Reopen the most recently viewed file
  pqx

  # Scriptable commands
  pqx info data.parquet
  pqx show data.parquet --page 3 --query "age > 30"
  pqx edit set data.parquet --row 12 --column city --value Oslo
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(cfg.RecentFiles) == 0 {
				return cmd.Help()
			}
			return runTUI(cmd, app, cfg.RecentFiles[0], 0)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		configureLogging(cmd, app)
		if app.PageSize <= 0 {
			return writeErr(cmd, fmt.Errorf("--page-size must be positive; got %d", app.PageSize))
		}
		if p, ok := app.Store.(store.Parquet); ok && app.Backup {
			p.Backup = true
			app.Store = p
		}
		return nil
	}

	cmd.PersistentFlags().IntVar(&app.PageSize, "page-size", envIntOr("PQX_PAGE_SIZE", defaultPageSize()), "Rows per page")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PQX_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log debug output to stderr")
	cmd.PersistentFlags().BoolVar(&app.Backup, "backup", envOr("PQX_BACKUP", "") != "", "Keep the replaced file as <file>.bak when saving")

	cmd.AddCommand(newOpenCmd(app))
	cmd.AddCommand(newInfoCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func configureLogging(cmd *cobra.Command, app *App) {
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.WarnLevel)
	if app.Verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// defaultPageSize reads the configured page size; a broken config falls back to
// the built-in default so flags still parse.
func defaultPageSize() int {
	cfg, err := store.LoadConfig()
	if err != nil {
		return store.DefaultPageSize
	}
	return cfg.PageSize()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envIntOr(k string, d int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"version": Version}})
		},
	}
}
