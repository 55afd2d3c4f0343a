// Package loader turns the places a document can come from into parsed
// documents: files, standard input, URLs and the document store.
//
// A failed load returns an error and no document, so callers keep whatever
// they were showing before.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcncl/jsonbrowse/internal/config"
	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/formatter"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/parser"
	"github.com/mcncl/jsonbrowse/internal/store"
)

// StorePrefix selects a stored document as a source: "store:<key>".
const StorePrefix = "store:"

// Loader loads documents. The zero value reads files and readers with no
// size limit; URLs and the store need the matching fields.
type Loader struct {
	Parser     *parser.Parser
	Store      store.Store
	HTTPClient *http.Client
	// Retries is the number of extra attempts for transient fetch failures.
	Retries    int
	RetryDelay time.Duration
	// MaxBytes caps the size of any loaded document; zero means no cap.
	MaxBytes  int64
	UserAgent string
	Stdin     io.Reader
}

// New creates a Loader from configuration.
func New(cfg *config.Config, st store.Store) *Loader {
	return &Loader{
		Parser:     parser.New(cfg.View.MaxDepth),
		Store:      st,
		HTTPClient: &http.Client{Timeout: cfg.Fetch.Timeout},
		Retries:    cfg.Fetch.Retries,
		RetryDelay: 500 * time.Millisecond,
		MaxBytes:   cfg.Fetch.MaxBytes,
		UserAgent:  cfg.Fetch.UserAgent,
		Stdin:      os.Stdin,
	}
}

func (l *Loader) parser() *parser.Parser {
	if l.Parser == nil {
		return parser.New(parser.DefaultMaxDepth)
	}
	return l.Parser
}

// Load resolves source and loads it: "-" or "" reads standard input,
// http(s) URLs are fetched, "store:<key>" reads the store and anything else
// is a file path.
func (l *Loader) Load(ctx context.Context, source string) (models.Document, error) {
	switch {
	case source == "" || source == "-":
		if l.Stdin == nil {
			return models.Document{}, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
		doc, err := l.FromReader("stdin", l.Stdin)
		if err != nil {
			return models.Document{}, err
		}
		doc.Source = models.SourceStdin
		return doc, nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return l.FromURL(ctx, source)
	case strings.HasPrefix(source, StorePrefix):
		return l.FromStore(ctx, strings.TrimPrefix(source, StorePrefix))
	default:
		return l.FromFile(source)
	}
}

// FromFile parses the file at path.
func (l *Loader) FromFile(path string) (models.Document, error) {
	if l.MaxBytes > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > l.MaxBytes {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' is %d bytes, the limit is %d", path, info.Size(), l.MaxBytes),
				errors.ErrTooLarge,
			)
		}
	}
	return l.parser().ParseFile(path)
}

// FromReader parses everything r yields as a document called name.
func (l *Loader) FromReader(name string, r io.Reader) (models.Document, error) {
	data, err := l.readAll(r)
	if err != nil {
		return models.Document{}, err
	}
	return l.parser().ParseBytes(name, models.SourceInline, data)
}

func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	if l.MaxBytes > 0 {
		r = io.LimitReader(r, l.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInputError("failed to read input", err)
	}
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return nil, errors.NewInputError(
			fmt.Sprintf("input exceeds %d bytes", l.MaxBytes),
			errors.ErrTooLarge,
		)
	}
	return data, nil
}

// FromURL fetches rawURL with GET. Network failures and 5xx responses are
// retried with exponential backoff; other statuses fail at once.
func (l *Loader) FromURL(ctx context.Context, rawURL string) (models.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Document{}, errors.NewInputError(fmt.Sprintf("invalid URL '%s'", rawURL), errors.ErrInvalidFilePath)
	}

	var data []byte
	err = retry(ctx, l.Retries+1, l.retryDelay(), func() error {
		var ferr error
		data, ferr = l.fetch(ctx, u.String())
		return ferr
	})
	if err != nil {
		if errors.TypeOf(err) != errors.ErrorTypeUnknown {
			return models.Document{}, err
		}
		return models.Document{}, errors.NewFetchError(fmt.Sprintf("failed to fetch %s", u.Redacted()), err)
	}

	doc, err := l.parser().ParseBytes(urlName(u), models.SourceURL, data)
	if err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func (l *Loader) retryDelay() time.Duration {
	if l.RetryDelay <= 0 {
		return 500 * time.Millisecond
	}
	return l.RetryDelay
}

func (l *Loader) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, retryable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, retryable(fmt.Errorf("%w: %d", errors.ErrFetchStatus, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.NewFetchError(
			fmt.Sprintf("GET %s returned %s", target, resp.Status),
			errors.ErrFetchStatus,
		)
	}
	return l.readAll(resp.Body)
}

func urlName(u *url.URL) string {
	if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
		return base
	}
	return u.Host
}

// FromStore reads the document stored under key.
func (l *Loader) FromStore(ctx context.Context, key string) (models.Document, error) {
	if l.Store == nil {
		return models.Document{}, errors.NewStorageError("no document store configured", nil)
	}
	data, ok, err := l.Store.Get(ctx, key)
	if err != nil {
		return models.Document{}, err
	}
	if !ok {
		return models.Document{}, errors.NewInputError(fmt.Sprintf("no document stored under '%s'", key), errors.ErrNotFound)
	}
	doc, err := l.parser().Parse(key, models.SourceStore, bytes.NewReader(data))
	if err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// Import parses data and keeps it in the store under a key derived from
// name, or under a random key when name yields none. It returns the key and
// the parsed document. Nothing is stored when data does not parse.
func (l *Loader) Import(ctx context.Context, name string, data []byte) (string, models.Document, error) {
	if l.Store == nil {
		return "", models.Document{}, errors.NewStorageError("no document store configured", nil)
	}
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return "", models.Document{}, errors.NewInputError(
			fmt.Sprintf("input exceeds %d bytes", l.MaxBytes),
			errors.ErrTooLarge,
		)
	}

	key := store.Slug(name)
	if key == "" {
		key = uuid.New().String()
	}
	if err := store.ValidateKey(key); err != nil {
		return "", models.Document{}, err
	}
	if name == "" {
		name = key
	}

	doc, err := l.parser().ParseBytes(name, models.SourceStore, data)
	if err != nil {
		return "", models.Document{}, err
	}

	compact, err := formatter.NewFormatter(formatter.Options{Compact: true}).Format(doc.Root)
	if err != nil {
		return "", models.Document{}, errors.NewStorageError("failed to encode document", err)
	}
	if err := l.Store.Put(ctx, key, []byte(compact)); err != nil {
		return "", models.Document{}, err
	}
	return key, doc, nil
}
