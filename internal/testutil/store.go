// Package testutil provides an in-memory fake of the OADA document store
// for package tests: a path-addressed resource tree served over HTTP with
// the same get/put/post contract the real store exposes.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// Store is a fake OADA store. Resources are registered by path; JSON
// resources are stored as decoded values, binary resources as raw bytes
// with a content type. POST to /resources creates a new resource with a
// generated id and returns its Content-Location, like the real store.
type Store struct {
	T *testing.T

	mu       sync.Mutex
	json     map[string]any
	binary   map[string]binaryResource
	puts     map[string][]json.RawMessage
	failures map[string]int

	server *httptest.Server
}

type binaryResource struct {
	contentType string
	data        []byte
}

// NewStore starts a fake store. The server is shut down with the test.
func NewStore(t *testing.T) *Store {
	s := &Store{
		T:        t,
		json:     make(map[string]any),
		binary:   make(map[string]binaryResource),
		puts:     make(map[string][]json.RawMessage),
		failures: make(map[string]int),
	}
	s.server = httptest.NewTLSServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

// Domain returns the host:port the fake store listens on.
func (s *Store) Domain() string {
	return strings.TrimPrefix(s.server.URL, "https://")
}

// Client returns an HTTP client that trusts the fake store's certificate.
func (s *Store) Client() *http.Client {
	return s.server.Client()
}

// SetJSON registers a JSON resource at path.
func (s *Store) SetJSON(path string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.json[path] = v
}

// SetBinary registers a binary resource at path.
func (s *Store) SetBinary(path, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binary[path] = binaryResource{contentType: contentType, data: data}
}

// FailNext makes the next n GETs of path return HTTP 500 before the
// registered resource is served. Used to exercise retry behavior.
func (s *Store) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = n
}

// Puts returns the bodies PUT to path, in order.
func (s *Store) Puts(path string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[path]
}

func (s *Store) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := strings.TrimSuffix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodGet:
		if n := s.failures[path]; n > 0 {
			s.failures[path] = n - 1
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}
		if b, ok := s.binary[path]; ok {
			w.Header().Set("Content-Type", b.contentType)
			w.Write(b.data)
			return
		}
		v, ok := s.json[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := "resources/" + uuid.NewString()
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var v any
			if err := json.Unmarshal(body, &v); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.json["/"+id] = v
		} else {
			s.binary["/"+id] = binaryResource{
				contentType: r.Header.Get("Content-Type"),
				data:        body,
			}
		}
		w.Header().Set("Content-Location", "/"+id)
		w.WriteHeader(http.StatusOK)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.puts[path] = append(s.puts[path], json.RawMessage(body))
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
