package ui

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/strongdm/supportdesk/internal/page"
)

// WorkspacePath serves the workspace summary as JSON.
const WorkspacePath = "/api/workspace"

// Workspace is the JSON form of the rendered landing view.
type Workspace struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	NextSteps   []string `json:"next_steps"`
}

// resource is an immutable response body with its encoded variants.
type resource struct {
	body         []byte
	contentType  string
	cacheControl string
	etag         string

	mu       sync.Mutex
	variants map[string][]byte
}

func newResource(body []byte, contentType, cacheControl string) *resource {
	sum := sha256.Sum256(body)
	return &resource{
		body:         body,
		contentType:  contentType,
		cacheControl: cacheControl,
		etag:         `"` + hex.EncodeToString(sum[:8]) + `"`,
		variants:     map[string][]byte{encodingIdentity: body},
	}
}

func (r *resource) encoded(encoding string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.variants[encoding]; ok {
		return data, nil
	}
	data, err := compress(encoding, r.body)
	if err != nil {
		return nil, err
	}
	r.variants[encoding] = data
	return data, nil
}

// Handler serves the rendered workspace document, its static assets and the
// workspace summary. Every body is immutable for the lifetime of the Handler.
type Handler struct {
	resources map[string]*resource
}

// NewHandler builds a handler around an already-rendered document. assets may
// be nil, in which case the embedded Assets are used.
func NewHandler(document []byte, view page.View, assets fs.FS) (*Handler, error) {
	if assets == nil {
		sub, err := fs.Sub(Assets, "static")
		if err != nil {
			return nil, fmt.Errorf("load embedded assets: %w", err)
		}
		assets = sub
	}

	h := &Handler{resources: make(map[string]*resource)}
	// Documents are never cached; assets are.
	h.resources["/"] = newResource(document, "text/html; charset=utf-8", "no-store")

	summary, err := json.Marshal(Workspace{
		Title:       view.Metadata.Title,
		Description: view.Metadata.Description,
		NextSteps:   view.Landing.Steps,
	})
	if err != nil {
		return nil, fmt.Errorf("encode workspace summary: %w", err)
	}
	h.resources[WorkspacePath] = newResource(summary, "application/json; charset=utf-8", "no-store")

	err = fs.WalkDir(assets, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assets, p)
		if err != nil {
			return err
		}
		h.resources["/"+p] = newResource(data, contentTypeFor(p), "public, max-age=86400")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqPath := path.Clean("/" + r.URL.Path)
	if reqPath == "/index.html" {
		reqPath = "/"
	}

	res, ok := h.resources[reqPath]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	header := w.Header()
	header.Set("Content-Type", res.contentType)
	header.Set("Cache-Control", res.cacheControl)
	header.Set("ETag", res.etag)
	header.Add("Vary", "Accept-Encoding")

	if etagMatches(r.Header.Get("If-None-Match"), res.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
	body, err := res.encoded(encoding)
	if err != nil {
		log.WithFields(log.Fields{"path": reqPath, "encoding": encoding, "error": err}).Warn("ui: compression failed; serving identity")
		encoding, body = encodingIdentity, res.body
	}
	if encoding != encodingIdentity {
		header.Set("Content-Encoding", encoding)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		log.WithFields(log.Fields{"path": reqPath, "error": err}).Debug("ui: failed to write response")
	}
}

func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

func contentTypeFor(rel string) string {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".svg":
		return "image/svg+xml; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".ico":
		return "image/x-icon"
	default:
		return "application/octet-stream"
	}
}
