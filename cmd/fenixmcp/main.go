// fenixmcp serves the CRM agent tool endpoint and manages its API keys.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/matiasleandrokruk/fenixmcp/internal/infra/config"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/logging"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/sqlite"
	"github.com/matiasleandrokruk/fenixmcp/internal/server"
	"github.com/matiasleandrokruk/fenixmcp/internal/version"
)

const shutdownTimeout = 10 * time.Second

// errUsage marks argument errors; run maps them to exit code 2.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(out, "%s\nRun 'fenixmcp help' for usage.\n", version.String()) //nolint:errcheck
		return 0
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "serve":
		err = cmdServe(rest, errOut)
	case "migrate":
		err = cmdMigrate(rest, out)
	case "keys":
		err = cmdKeys(rest, out)
	case "version", "-version", "--version":
		fmt.Fprintln(out, version.String()) //nolint:errcheck
	case "help", "-h", "-help", "--help":
		printHelp(out)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	if err == nil {
		return 0
	}
	color.New(color.FgRed).Fprintf(errOut, "Error: %v\n", err) //nolint:errcheck
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		return 2
	}
	return 1
}

const helpText = `FenixMCP - CRM tools for AI agents over JSON-RPC / MCP

Usage:
  fenixmcp <command> [options]
`

var helpSections = []struct{ title, body string }{
	{"Commands:", `  serve                      Start the HTTP endpoint
  migrate                    Apply database migrations
  keys issue                 Issue an API key (--org, --owner, --label, --signed, --ttl)
  keys list                  List the API keys of an organization (--org)
  keys revoke                Revoke an API key (--org, --id)
  version                    Show version information
  help                       Show this help message
`},
	{"Common options:", `  --config <path>            YAML or TOML config file
  --db <path>                SQLite database path (overrides config)
`},
	{"Environment:", `  FENIX_PORT, FENIX_DB_PATH, FENIX_JWT_SECRET, FENIX_API_KEY_HEADER,
  FENIX_LOG_LEVEL, FENIX_LOG_FORMAT, FENIX_MCP_ENDPOINT, FENIX_MAX_BODY_BYTES
`},
	{"Examples:", `  fenixmcp migrate --db ./data/fenix.db
  fenixmcp keys issue --org org_A --owner u1 --label "sales agent"
  fenixmcp serve --config fenix.yaml`},
}

func printHelp(out io.Writer) {
	yellow := color.New(color.FgYellow)

	fmt.Fprint(out, helpText+"\n") //nolint:errcheck
	for _, section := range helpSections {
		yellow.Fprintln(out, section.title) //nolint:errcheck

		fmt.Fprintln(out, section.body) //nolint:errcheck
	}
}

// commonFlags registers --config and --db on fs.
type commonFlags struct {
	configPath string
	dbPath     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML or TOML config file")
	fs.StringVar(&c.dbPath, "db", "", "SQLite database path")
}

func (c *commonFlags) load() (config.Config, error) {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	return cfg, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", errUsage, fs.Name(), fs.Arg(0))
	}
	return nil
}

// openDB opens the configured database, creating its directory, and applies migrations.
func openDB(path string) (*sql.DB, error) {
	if path != sqlite.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return sqlite.OpenMigrated(path)
}

func cmdServe(args []string, errOut io.Writer) error {
	var common commonFlags
	fs := newFlagSet("serve")
	common.register(fs)
	port := fs.Int("port", 0, "HTTP port (overrides config)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: errOut})

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(db, cfg, logger)
	if err != nil {
		_ = db.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

func cmdMigrate(args []string, out io.Writer) error {
	var common commonFlags
	fs := newFlagSet("migrate")
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	v, err := sqlite.MigrationVersion(db)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "Database %s is at migration version %d\n", cfg.Database.Path, v) //nolint:errcheck
	return nil
}
