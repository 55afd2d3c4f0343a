package parser

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/models"
)

// DefaultMaxDepth bounds container nesting accepted by the parser.
const DefaultMaxDepth = 10000

// Parser decodes JSON text into models values, keeping object member order.
type Parser struct {
	MaxDepth int
}

// New returns a Parser that rejects documents nested deeper than maxDepth.
// A non-positive maxDepth selects DefaultMaxDepth.
func New(maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{MaxDepth: maxDepth}
}

var defaultParser = New(DefaultMaxDepth)

// Parse converts JSON data from an io.Reader into a Document
func Parse(reader io.Reader) (models.Document, error) {
	return defaultParser.Parse("", models.SourceInline, reader)
}

// ParseBytes parses a JSON document held in memory.
func ParseBytes(data []byte) (models.Document, error) {
	return defaultParser.ParseBytes("", models.SourceInline, data)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	return ParseBytes([]byte(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Document, error) {
	return defaultParser.ParseFile(filePath)
}

// Parse decodes exactly one JSON value from reader.
func (p *Parser) Parse(name string, source models.Source, reader io.Reader) (models.Document, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	root, err := p.decodeValue(decoder, 0)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return models.Document{}, translateError(err)
	}

	// Anything but a clean EOF after the root value is rejected.
	if _, err := decoder.Token(); err == nil {
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return models.Document{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
	}

	return models.NewDocument(name, source, root), nil
}

// ParseBytes parses data, treating whitespace-only input as empty.
func (p *Parser) ParseBytes(name string, source models.Source, data []byte) (models.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewInputError("input is empty", errors.ErrEmptyInput)
	}
	return p.Parse(name, source, bytes.NewReader(data))
}

// ParseFile opens filePath and parses its content. The document is named
// after the file's base name.
func (p *Parser) ParseFile(filePath string) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.IsDir() {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("'%s' is a directory", filePath),
			errors.ErrInvalidFilePath,
		)
	}
	if stat.Size() == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return p.Parse(filepath.Base(filePath), models.SourceFile, file)
}

// decodeValue reads one complete value from the token stream.
func (p *Parser) decodeValue(decoder *json.Decoder, depth int) (models.Value, error) {
	tok, err := decoder.Token()
	if err != nil {
		return models.Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= p.MaxDepth {
			return models.Value{}, errors.NewParsingError(
				fmt.Sprintf("nesting deeper than %d levels at offset %d", p.MaxDepth, decoder.InputOffset()),
				errors.ErrTooDeep,
			)
		}
		switch t {
		case '{':
			return p.decodeObject(decoder, depth+1)
		case '[':
			return p.decodeArray(decoder, depth+1)
		}
		return models.Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return models.String(t), nil
	case json.Number:
		return models.Number(t), nil
	case bool:
		return models.Bool(t), nil
	case nil:
		return models.Null(), nil
	default:
		return models.Other(t), nil
	}
}

func (p *Parser) decodeObject(decoder *json.Decoder, depth int) (models.Value, error) {
	var members []models.Member
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return models.Value{}, noEOF(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return models.Value{}, fmt.Errorf("object key is %T, not a string", keyTok)
		}
		value, err := p.decodeValue(decoder, depth)
		if err != nil {
			return models.Value{}, noEOF(err)
		}
		members = append(members, models.Member{Key: key, Value: value})
	}
	if _, err := decoder.Token(); err != nil {
		return models.Value{}, noEOF(err)
	}
	return models.Object(members...), nil
}

func (p *Parser) decodeArray(decoder *json.Decoder, depth int) (models.Value, error) {
	var items []models.Value
	for decoder.More() {
		value, err := p.decodeValue(decoder, depth)
		if err != nil {
			return models.Value{}, noEOF(err)
		}
		items = append(items, value)
	}
	if _, err := decoder.Token(); err != nil {
		return models.Value{}, noEOF(err)
	}
	return models.Array(items...), nil
}

// noEOF turns an EOF inside a container into a truncation error so it is
// not mistaken for empty input.
func noEOF(err error) error {
	if stderrors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func translateError(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxError.Offset, syntaxError.Error()),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", fmt.Errorf("%w: %v", errors.ErrInvalidJSON, err))
}
