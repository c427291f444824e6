package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"biblioflow/api"
	"biblioflow/config"
	"biblioflow/library"
	"biblioflow/logging"
)

const serviceName = "biblioflow"

// rootFlags override the environment configuration when set.
type rootFlags struct {
	apiURL    string
	env       string
	storage   string
	db        string
	redisAddr string
	ownership string
	logLevel  string
	timeout   time.Duration
}

func (f *rootFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.apiURL, "api-url", "", "service base URL (overrides BIBLIOFLOW_API_URL)")
	fs.StringVar(&f.env, "env", "", "development or production")
	fs.StringVar(&f.storage, "storage", "", "local storage driver: sqlite or redis")
	fs.StringVar(&f.db, "db", "", "SQLite database path")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address when --storage=redis")
	fs.StringVar(&f.ownership, "ownership", "", "ownership rule: id or legacy")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.DurationVar(&f.timeout, "timeout", 0, "HTTP timeout")
}

func (f *rootFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("api-url", &cfg.APIURL, f.apiURL)
	set("env", &cfg.Env, f.env)
	set("storage", &cfg.Storage.Driver, f.storage)
	set("db", &cfg.Storage.Path, f.db)
	set("redis-addr", &cfg.Storage.RedisAddr, f.redisAddr)
	set("ownership", &cfg.Ownership, f.ownership)
	set("log-level", &cfg.LogLevel, f.logLevel)
	if fs.Changed("timeout") {
		cfg.HTTPTimeout = f.timeout
	}
}

// app holds what every command needs once configuration is resolved.
type app struct {
	sc          *bufio.Scanner
	out         io.Writer
	errOut      io.Writer
	interactive bool

	flags  rootFlags
	cfg    *config.Config
	logger zerolog.Logger
	client *api.Client
	mgr    *library.Manager
	shell  *library.Shell
}

func newApp(in io.Reader, out, errOut io.Writer, interactive bool) *app {
	return &app{
		sc:          bufio.NewScanner(in),
		out:         out,
		errOut:      errOut,
		interactive: interactive,
		logger:      zerolog.Nop(),
	}
}

// setup loads configuration, applies flag overrides and opens storage.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.flags.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.InitWriter(a.errOut, serviceName, cfg.Env, cfg.LogLevel)

	rule, err := library.ParseOwnershipRule(cfg.Ownership)
	if err != nil {
		return err
	}

	storage, err := openStorage(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}

	a.client = api.NewClient(cfg.APIBase(),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(a.logger.With().Str("component", "api").Logger()),
	)
	a.mgr = library.NewManager(storage, a.client, library.Options{
		Ownership: rule,
		Session: library.SessionOptions{
			Secret: cfg.Session.Secret,
			TTL:    cfg.Session.TTL,
		},
		Logger: a.logger,
	})
	a.logger.Debug().
		Str("api", cfg.APIBase()).
		Str("storage", cfg.Storage.Driver).
		Str("ownership", string(rule)).
		Msg("client ready")
	return nil
}

func (a *app) close() {
	if a.mgr == nil {
		return
	}
	if err := a.mgr.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close storage")
	}
	a.mgr = nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (library.Storage, error) {
	if cfg.Driver == config.StorageRedis {
		rdb, err := library.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		return library.NewRedisStorage(rdb), nil
	}
	return library.NewSQLiteStorage(cfg.Path)
}

// prompt prints label and reads one trimmed line. ok is false at end of
// input.
func (a *app) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !a.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.sc.Text()), true
}

// readPassword securely reads a password with masking. Piped input is read
// as a plain line.
func (a *app) readPassword(prompt string) (string, error) {
	if !a.interactive {
		line, ok := a.prompt(prompt)
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return line, nil
	}
	fmt.Fprint(a.out, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.out)
	return strings.TrimSpace(string(bytePassword)), nil
}

// confirm asks a yes/no question; anything but "o" or "oui" is no.
func (a *app) confirm(question string) bool {
	answer, ok := a.prompt(question + " (o/N) : ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "o", "oui", "y", "yes":
		return true
	}
	return false
}
