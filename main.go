package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/mcncl/jsonbrowse/internal/config"
	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/loader"
	"github.com/mcncl/jsonbrowse/internal/logging"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config  string           `help:"Path to a config file. Defaults to the nearest .jsonbrowse.yml." type:"path"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	NoColor bool             `help:"Disable colored output." name:"no-color"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	View   ViewCmd   `cmd:"" default:"withargs" help:"Browse a document in the terminal (default)."`
	Tree   TreeCmd   `cmd:"" help:"Print a document as a tree outline."`
	Filter FilterCmd `cmd:"" help:"Print the part of a document matching a term."`
	Stats  StatsCmd  `cmd:"" help:"Print statistics about a document."`
	Serve  ServeCmd  `cmd:"" help:"Serve stored documents over HTTP."`
	Store  StoreCmd  `cmd:"" help:"Manage stored documents."`
	Conf   ConfigCmd `cmd:"" name:"config" help:"Manage the configuration file."`
}

// Context holds the runtime context shared by all commands
type Context struct {
	context.Context
	Config  *config.Config
	Logger  *log.Logger
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	NoColor bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonbrowse --help\n")
		os.Exit(1)
	}
}

// newParser builds the kong parser for cli.
func newParser(cli *CLI, stdout, stderr io.Writer, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("jsonbrowse"),
		kong.Description("Browse, search and serve JSON documents as collapsible trees."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": "jsonbrowse version " + Version},
	}, options...)
	return kong.New(cli, options...)
}

// execute parses args and runs the selected command.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, options ...kong.Option) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewInputError(err.Error(), nil)
	}

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.NewConfigError("invalid log level", err)
	}
	if cli.Debug {
		level = log.DebugLevel
	}
	logger := logging.New(stderr, level)
	logger.Debug("configuration loaded", "backend", cfg.Store.Backend)

	return kctx.Run(&Context{
		Context: logging.WithLogger(ctx, logger),
		Config:  cfg,
		Logger:  logger,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		NoColor: cli.NoColor,
	})
}

// loadConfig reads path, or the nearest config file when path is empty,
// and validates the result.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(err.Error(), nil)
	}
	return cfg, nil
}

// loader creates a loader for source. The store is only opened when source
// names a stored document.
func (c *Context) loader(source string) (*loader.Loader, func(), error) {
	if strings.HasPrefix(source, loader.StorePrefix) {
		return c.storeLoader()
	}
	l := loader.New(c.Config, nil)
	l.Stdin = c.Stdin
	return l, func() {}, nil
}

// storeLoader creates a loader backed by the configured store. The returned
// func closes the store.
func (c *Context) storeLoader() (*loader.Loader, func(), error) {
	st, err := store.Open(c, c.Config.Store)
	if err != nil {
		if errors.TypeOf(err) != errors.ErrorTypeUnknown {
			return nil, nil, err
		}
		return nil, nil, errors.NewStorageError("failed to open document store", err)
	}
	c.Logger.Debug("store opened", "backend", c.Config.Store.Backend)

	l := loader.New(c.Config, st)
	l.Stdin = c.Stdin
	return l, func() {
		if err := st.Close(); err != nil {
			c.Logger.Warn("failed to close store", "err", err)
		}
	}, nil
}

// load loads source, refusing to wait on an interactive terminal when no
// source is given.
func (c *Context) load(l *loader.Loader, source string) (models.Document, error) {
	if source == "" && isTerminal(c.Stdin) {
		return models.Document{}, errors.NewInputError("no input provided", errors.ErrNoInput)
	}
	progress := logging.NewProgress(c.Logger)
	doc, err := l.Load(c, source)
	if err != nil {
		return models.Document{}, err
	}
	progress.Done("document loaded", "name", doc.Name, "source", doc.Source)
	return doc, nil
}

func (c *Context) color() bool {
	return c.Config.View.Color && !c.NoColor
}

func (c *Context) println(s string) error {
	if _, err := fmt.Fprintln(c.Stdout, s); err != nil {
		return errors.NewOutputError("failed to write output", err)
	}
	return nil
}

// isTerminal reports whether r is a character device such as a TTY.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
