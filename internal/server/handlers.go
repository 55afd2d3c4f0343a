package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mcncl/jsonbrowse/internal/analyzer"
	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/formatter"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/search"
	"github.com/mcncl/jsonbrowse/internal/tree"
	"github.com/mcncl/jsonbrowse/internal/viewer"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").
	Funcs(template.FuncMap{"valueClass": valueClass}).
	ParseFS(templateFS, "templates/page.html"))

// valueClass names the style of a leaf after its icon, so null shares the
// string style.
func valueClass(n *tree.Node) string {
	switch n.Icon {
	case tree.IconFile:
		return "string"
	case tree.IconNumber:
		return "number"
	case tree.IconToggleOn, tree.IconToggleOff:
		return "boolean"
	default:
		return "other"
	}
}

// maxUpload bounds multipart parsing memory; larger parts spill to disk.
const maxUpload = 32 << 20

type pageData struct {
	Key        string
	Query      string
	Expand     string
	Name       string
	Documents  []string
	Roots      []*tree.Node
	Stats      analyzer.Stats
	Matches    int
	Scalar     string
	ScalarRoot bool
	Loaded     bool
	Error      string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Key:    q.Get("key"),
		Query:  q.Get("q"),
		Expand: q.Get("expand"),
	}

	status := http.StatusOK
	if data.Key != "" {
		state, doc, err := s.viewState(r.Context(), data.Key, data.Query, data.Expand)
		if err != nil {
			status = statusFor(err)
			data.Error = errors.UserFriendlyError(err)
		} else {
			data.Loaded = true
			data.Name = doc.Name
			data.Roots = state.Tree().Roots()
			data.Stats = state.Stats()
			data.Matches = state.Matches()
			if state.ScalarRoot() {
				data.ScalarRoot = true
				data.Scalar = doc.Root.StringForm()
			}
		}
	}

	keys, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Warn("listing documents", "err", err)
	}
	data.Documents = keys

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering page", "err", err)
	}
}

// viewState loads key and applies the query: a search term wins over the
// expand flag, since search results are always expanded.
func (s *Server) viewState(ctx context.Context, key, term, expand string) (*viewer.State, models.Document, error) {
	doc, err := s.loader.FromStore(ctx, key)
	if err != nil {
		return nil, models.Document{}, err
	}
	state := viewer.New(viewer.Options{Expand: s.view.Expand, MaxDepth: s.view.MaxDepth})
	state.Load(doc)

	switch {
	case term != "":
		state.Search(term)
	case expand != "":
		on, err := strconv.ParseBool(expand)
		if err != nil {
			return nil, models.Document{}, errors.NewInputError("expand must be a boolean", err)
		}
		if on {
			state.ExpandAll()
		} else {
			state.CollapseAll()
		}
	}
	return state, doc, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var body io.Reader = r.Body

	if err := r.ParseMultipartForm(maxUpload); err == nil {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, errors.NewInputError("multipart upload needs a 'file' field", errors.ErrNoInput))
			return
		}
		defer func() { _ = file.Close() }()
		body = file
		if name == "" {
			name = header.Filename
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, errors.NewInputError("failed to read upload", err))
		return
	}

	key, doc, err := s.loader.Import(r.Context(), name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("document imported", "key", key, "name", doc.Name, "bytes", len(data))
	http.Redirect(w, r, "/?key="+key, http.StatusSeeOther)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"documents": keys})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, ok, err := s.store.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, errors.NewInputError("no document stored under '"+key+"'", errors.ErrNotFound))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nodeView is the JSON form of a tree node.
type nodeView struct {
	Key       string      `json:"key"`
	Path      string      `json:"path"`
	Kind      string      `json:"kind"`
	ValueKind string      `json:"value_kind"`
	Value     string      `json:"value"`
	Icon      string      `json:"icon,omitempty"`
	Expanded  bool        `json:"expanded"`
	Children  []*nodeView `json:"children,omitempty"`
}

func toNodeViews(nodes []*tree.Node) []*nodeView {
	out := make([]*nodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &nodeView{
			Key:       n.Key,
			Path:      n.Path.String(),
			Kind:      n.Kind.String(),
			ValueKind: n.ValueKind.String(),
			Value:     n.DisplayValue,
			Icon:      string(n.Icon),
			Expanded:  n.Expanded,
			Children:  toNodeViews(n.Children),
		})
	}
	return out
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, doc, err := s.viewState(r.Context(), chi.URLParam(r, "key"), q.Get("q"), q.Get("expand"))
	if err != nil {
		writeError(w, err)
		return
	}
	nodes := state.Tree().Roots()
	if pointer := q.Get("path"); pointer != "" {
		path, err := tree.ParsePath(pointer)
		if err != nil {
			writeError(w, errors.NewInputError(err.Error(), nil))
			return
		}
		n, ok := state.Tree().Find(path)
		if !ok {
			writeError(w, errors.NewInputError(fmt.Sprintf("no node at path '%s'", pointer), errors.ErrNotFound))
			return
		}
		nodes = []*tree.Node{n}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    doc.Name,
		"term":    state.Term(),
		"matches": state.Matches(),
		"align":   state.Align(),
		"nodes":   toNodeViews(nodes),
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loader.FromStore(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	filtered := search.FilterOrEmpty(doc.Root, r.URL.Query().Get("q"))
	out, err := formatter.Format(filtered)
	if err != nil {
		writeError(w, errors.NewOutputError("failed to encode filtered document", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out+"\n")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loader.FromStore(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzer.Analyze(doc.Root))
}

type fetchRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewInputError("request body must be {\"url\": ..., \"name\": ...}", err))
		return
	}
	if req.URL == "" {
		writeError(w, errors.NewInputError("url is required", errors.ErrNoInput))
		return
	}

	doc, err := s.loader.FromURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := formatter.NewFormatter(formatter.Options{Compact: true}).Format(doc.Root)
	if err != nil {
		writeError(w, errors.NewOutputError("failed to encode fetched document", err))
		return
	}
	name := req.Name
	if name == "" {
		name = doc.Name
	}
	key, _, err := s.loader.Import(r.Context(), name, []byte(data))
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("document fetched", "key", key, "url", req.URL)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "name": name})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": errors.UserFriendlyError(err)})
}

// statusFor maps an error to the HTTP status reported for it.
func statusFor(err error) int {
	if errors.Is(err, errors.ErrNotFound) {
		return http.StatusNotFound
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInput:
		return http.StatusBadRequest
	case errors.ErrorTypeParsing:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
