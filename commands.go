package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/formatter"
	"github.com/mcncl/jsonbrowse/internal/logging"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/render"
	"github.com/mcncl/jsonbrowse/internal/search"
	"github.com/mcncl/jsonbrowse/internal/server"
	"github.com/mcncl/jsonbrowse/internal/tui"
	"github.com/mcncl/jsonbrowse/internal/viewer"
	"github.com/mcncl/jsonbrowse/internal/watcher"
)

// ViewCmd opens the interactive viewer.
type ViewCmd struct {
	Source  string `arg:"" optional:"" help:"File, URL, store:<key> or - for stdin."`
	Expand  bool   `help:"Start with every folder expanded." short:"e"`
	Watch   bool   `help:"Reload the file when it changes." short:"w"`
	LogFile string `help:"Write the viewer log to this file." name:"log-file" type:"path"`
}

// Run loads the document and runs the terminal UI until the user quits.
func (cmd *ViewCmd) Run(c *Context) error {
	l, done, err := c.loader(cmd.Source)
	if err != nil {
		return err
	}
	defer done()

	doc, err := c.load(l, cmd.Source)
	if err != nil {
		return err
	}

	state := viewer.New(viewer.Options{
		Expand:   c.Config.View.Expand || cmd.Expand,
		MaxDepth: c.Config.View.MaxDepth,
	})
	state.Load(doc)

	// The terminal belongs to the UI, so its log goes to a file or nowhere.
	uiLogger := logging.Discard()
	logFile := cmd.LogFile
	if logFile == "" {
		logFile = c.Config.Log.File
	}
	if logFile != "" {
		fl, closer, err := logging.OpenFile(logFile, c.Logger.GetLevel())
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to open log file '%s'", logFile), err)
		}
		defer func() { _ = closer.Close() }()
		uiLogger = fl
	}

	opts := tui.Options{
		Render: render.Options{
			Color:     c.color(),
			ShowTypes: c.Config.View.ShowTypes,
		},
		Logger: uiLogger,
	}
	if doc.Source != models.SourceStdin {
		source := cmd.Source
		opts.Reload = func(ctx context.Context) (models.Document, error) {
			return l.Load(ctx, source)
		}
	}

	if cmd.Watch {
		if doc.Source != models.SourceFile {
			return errors.NewInputError("--watch needs a file source", nil)
		}
		w, err := watcher.New(cmd.Source, watcher.WithOnError(func(err error) {
			uiLogger.Warn("watch error", "path", cmd.Source, "err", err)
		}))
		if err != nil {
			return errors.NewInputError(fmt.Sprintf("cannot watch '%s'", cmd.Source), err)
		}
		if err := w.Start(c); err != nil {
			return errors.NewInputError(fmt.Sprintf("cannot watch '%s'", cmd.Source), err)
		}
		uiLogger.Info("watching", "path", w.Path(), "polling", w.IsPolling())
		opts.Watcher = w
	}

	return tui.Run(c, tui.New(state, opts))
}

// TreeCmd prints the outline without starting the UI.
type TreeCmd struct {
	Source string `arg:"" optional:"" help:"File, URL, store:<key> or - for stdin."`
	Expand bool   `help:"Expand every folder." short:"e"`
	Query  string `help:"Show only what matches this term." short:"q"`
	Types  bool   `help:"Show the kind of every value." short:"t"`
}

// Run prints the rows of the tree, one per line.
func (cmd *TreeCmd) Run(c *Context) error {
	l, done, err := c.loader(cmd.Source)
	if err != nil {
		return err
	}
	defer done()

	doc, err := c.load(l, cmd.Source)
	if err != nil {
		return err
	}

	state := viewer.New(viewer.Options{
		Expand:   c.Config.View.Expand || cmd.Expand,
		MaxDepth: c.Config.View.MaxDepth,
	})
	state.Load(doc)

	if state.ScalarRoot() {
		return c.println(doc.Root.StringForm())
	}
	if cmd.Query != "" {
		state.Search(cmd.Query)
		c.Logger.Debug("search applied", "term", cmd.Query, "matches", state.Matches())
		if state.Matches() == 0 {
			c.Logger.Info("no matches", "term", cmd.Query)
		}
	}

	out := render.Text(state.Tree().Roots(), render.Options{
		Color:     c.color(),
		ShowTypes: cmd.Types || c.Config.View.ShowTypes,
	})
	if _, err := io.WriteString(c.Stdout, out); err != nil {
		return errors.NewOutputError("failed to write tree", err)
	}
	return nil
}

// FilterCmd prints the filtered document as JSON.
type FilterCmd struct {
	Term    string `arg:"" help:"Case-insensitive term matched against keys and values."`
	Source  string `arg:"" optional:"" help:"File, URL, store:<key> or - for stdin."`
	Compact bool   `help:"Print compact JSON." short:"c"`
}

// Run prints the part of the document matching the term, or {} when
// nothing matches.
func (cmd *FilterCmd) Run(c *Context) error {
	l, done, err := c.loader(cmd.Source)
	if err != nil {
		return err
	}
	defer done()

	doc, err := c.load(l, cmd.Source)
	if err != nil {
		return err
	}

	out, err := formatter.NewFormatter(formatter.Options{Compact: cmd.Compact}).
		Format(search.FilterOrEmpty(doc.Root, cmd.Term))
	if err != nil {
		return errors.NewOutputError("failed to format result", err)
	}
	return c.println(out)
}

// StatsCmd prints document statistics.
type StatsCmd struct {
	Source string `arg:"" optional:"" help:"File, URL, store:<key> or - for stdin."`
	JSON   bool   `help:"Print the statistics as JSON." name:"json"`
}

// Run prints the statistics of the loaded document.
func (cmd *StatsCmd) Run(c *Context) error {
	l, done, err := c.loader(cmd.Source)
	if err != nil {
		return err
	}
	defer done()

	doc, err := c.load(l, cmd.Source)
	if err != nil {
		return err
	}

	state := viewer.New(viewer.Options{MaxDepth: c.Config.View.MaxDepth})
	state.Load(doc)
	stats := state.Stats()

	if cmd.JSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return errors.NewOutputError("failed to encode statistics", err)
		}
		return c.println(string(data))
	}

	rows := []struct {
		label string
		value int
	}{
		{"objects", stats.Objects},
		{"arrays", stats.Arrays},
		{"strings", stats.Strings},
		{"numbers", stats.Numbers},
		{"booleans", stats.Booleans},
		{"nulls", stats.Nulls},
		{"keys", stats.Keys},
		{"max depth", stats.MaxDepth},
		{"key width", stats.MaxKeyWidth},
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %s\n", "document", doc.Name)
	for _, row := range rows {
		fmt.Fprintf(&b, "%-10s %d\n", row.label, row.value)
	}
	if _, err := io.WriteString(c.Stdout, b.String()); err != nil {
		return errors.NewOutputError("failed to write statistics", err)
	}
	return nil
}

// ServeCmd runs the HTTP viewer.
type ServeCmd struct {
	Addr string `help:"Listen address; overrides server.addr." short:"a"`
}

// Run serves until the context is cancelled.
func (cmd *ServeCmd) Run(c *Context) error {
	if cmd.Addr != "" {
		c.Config.Server.Addr = cmd.Addr
	}
	l, done, err := c.storeLoader()
	if err != nil {
		return err
	}
	defer done()

	return server.New(c.Config, l, c.Logger).Run(c)
}

// StoreCmd groups the document store commands.
type StoreCmd struct {
	Put    StorePutCmd    `cmd:"" help:"Import a document into the store."`
	Get    StoreGetCmd    `cmd:"" help:"Print a stored document."`
	List   StoreListCmd   `cmd:"" name:"list" aliases:"ls" help:"List stored keys."`
	Delete StoreDeleteCmd `cmd:"" aliases:"rm" help:"Remove a stored document."`
}

// StorePutCmd imports a file or stdin.
type StorePutCmd struct {
	Source string `arg:"" help:"File to import, or - for stdin."`
	Name   string `help:"Name used to derive the key; defaults to the file name." short:"n"`
}

// Run imports the document and prints its key.
func (cmd *StorePutCmd) Run(c *Context) error {
	l, done, err := c.storeLoader()
	if err != nil {
		return err
	}
	defer done()

	var data []byte
	name := cmd.Name
	if cmd.Source == "-" {
		data, err = io.ReadAll(c.Stdin)
	} else {
		data, err = os.ReadFile(cmd.Source)
		if name == "" {
			name = filepath.Base(cmd.Source)
		}
	}
	if err != nil {
		return errors.NewInputError(fmt.Sprintf("failed to read '%s'", cmd.Source), err)
	}

	key, doc, err := l.Import(c, name, data)
	if err != nil {
		return err
	}
	c.Logger.Debug("document stored", "key", key, "name", doc.Name)
	return c.println(key)
}

// StoreGetCmd prints a stored document.
type StoreGetCmd struct {
	Key     string `arg:"" help:"Key of the document."`
	Compact bool   `help:"Print compact JSON." short:"c"`
}

// Run prints the stored document as JSON.
func (cmd *StoreGetCmd) Run(c *Context) error {
	l, done, err := c.storeLoader()
	if err != nil {
		return err
	}
	defer done()

	doc, err := l.FromStore(c, cmd.Key)
	if err != nil {
		return err
	}
	out, err := formatter.NewFormatter(formatter.Options{Compact: cmd.Compact}).Format(doc.Root)
	if err != nil {
		return errors.NewOutputError("failed to format document", err)
	}
	return c.println(out)
}

// StoreListCmd lists the stored keys.
type StoreListCmd struct{}

// Run prints one key per line.
func (cmd *StoreListCmd) Run(c *Context) error {
	l, done, err := c.storeLoader()
	if err != nil {
		return err
	}
	defer done()

	keys, err := l.Store.List(c)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.println(key); err != nil {
			return err
		}
	}
	return nil
}

// StoreDeleteCmd removes a stored document.
type StoreDeleteCmd struct {
	Key string `arg:"" help:"Key of the document."`
}

// Run deletes the key, failing when nothing is stored under it.
func (cmd *StoreDeleteCmd) Run(c *Context) error {
	l, done, err := c.storeLoader()
	if err != nil {
		return err
	}
	defer done()

	if _, found, err := l.Store.Get(c, cmd.Key); err != nil {
		return err
	} else if !found {
		return errors.NewInputError(fmt.Sprintf("no document stored under '%s'", cmd.Key), errors.ErrNotFound)
	}
	if err := l.Store.Delete(c, cmd.Key); err != nil {
		return err
	}
	c.Logger.Info("document deleted", "key", cmd.Key)
	return nil
}

// ConfigCmd groups the configuration commands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a config file with the default settings."`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration."`
}

// ConfigInitCmd writes the defaults to a file.
type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:".jsonbrowse.yml" help:"Where to write the config file." type:"path"`
	Force bool   `help:"Overwrite an existing file." short:"f"`
}

// Run writes the effective configuration to the target path.
func (cmd *ConfigInitCmd) Run(c *Context) error {
	if _, err := os.Stat(cmd.Path); err == nil && !cmd.Force {
		return errors.NewConfigError(fmt.Sprintf("'%s' already exists, use --force to overwrite it", cmd.Path), nil)
	}
	if err := c.Config.Save(cmd.Path); err != nil {
		return errors.NewConfigError("failed to write config file", err)
	}
	c.Logger.Info("config written", "path", cmd.Path)
	return nil
}

// ConfigShowCmd prints the configuration.
type ConfigShowCmd struct{}

// Run prints the effective configuration as YAML.
func (cmd *ConfigShowCmd) Run(c *Context) error {
	_, err := io.WriteString(c.Stdout, c.Config.String())
	if err != nil {
		return errors.NewOutputError("failed to write config", err)
	}
	return nil
}
