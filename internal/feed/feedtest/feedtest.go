// Package feedtest serves an in-memory extension feed for tests.
package feedtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/siteext-labs/siteext/internal/manifest/manifesttest"
	"github.com/siteext-labs/siteext/internal/version"
)

// Published is one package version on the fake feed.
type Published struct {
	manifesttest.Spec
	Downloads   int64
	PublishedAt time.Time
}

// Server is a fake feed. Its URL is the feed root.
type Server struct {
	*httptest.Server

	t        testing.TB
	mu       sync.Mutex
	packages map[string][]stored // lowercased id -> versions
	status   int
	requests map[string]int
}

type stored struct {
	Published
	archive []byte
}

// New starts a feed serving pkgs. It is closed when the test ends.
func New(t testing.TB, pkgs ...Published) *Server {
	t.Helper()
	s := &Server{
		t:        t,
		packages: make(map[string][]stored),
		requests: make(map[string]int),
	}
	for _, p := range pkgs {
		s.Add(p)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Add publishes p.
func (s *Server) Add(p Published) {
	s.t.Helper()
	data := manifesttest.Build(s.t, p.Spec)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(p.ID)
	s.packages[key] = append(s.packages[key], stored{Published: p, archive: data})
}

// Remove withdraws every version of id.
func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.packages, strings.ToLower(id))
}

// FailWith makes every request answer with status. Zero restores normal
// service.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Requests returns how many requests hit paths starting with prefix.
func (s *Server) Requests(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, c := range s.requests {
		if strings.HasPrefix(path, prefix) {
			n += c
		}
	}
	return n
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.URL.Path]++

	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}

	switch {
	case r.URL.Path == "/query":
		s.serveQuery(w, r)
	case strings.HasPrefix(r.URL.Path, "/package/"):
		s.servePackage(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	prerelease, _ := strconv.ParseBool(r.URL.Query().Get("prerelease"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	take, err := strconv.Atoi(r.URL.Query().Get("take"))
	if err != nil || take <= 0 {
		take = 20
	}

	ids := make([]string, 0, len(s.packages))
	for id := range s.packages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var hits []map[string]any
	for _, id := range ids {
		latest, ok := s.latest(id, !prerelease)
		if !ok {
			continue
		}
		text := strings.ToLower(latest.ID + " " + latest.Title + " " + latest.Description)
		if q != "" && !strings.Contains(text, q) {
			continue
		}
		entry := map[string]any{
			"id":             latest.ID,
			"version":        latest.Version,
			"title":          latest.Title,
			"description":    latest.Description,
			"authors":        []string{latest.Authors},
			"projectUrl":     "https://example.com/" + latest.ID,
			"totalDownloads": latest.Downloads,
		}
		if !latest.PublishedAt.IsZero() {
			entry["published"] = latest.PublishedAt.UTC().Format(time.RFC3339)
		}
		hits = append(hits, entry)
	}

	page := []map[string]any{}
	if skip < len(hits) {
		page = hits[skip:min(len(hits), skip+take)]
	}
	writeJSON(w, map[string]any{"totalHits": len(hits), "data": page})
}

func (s *Server) servePackage(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/package/"), "/")
	versions, ok := s.packages[parts[0]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch len(parts) {
	case 2:
		if parts[1] != "index.json" {
			http.NotFound(w, r)
			return
		}
		list := make([]string, 0, len(versions))
		for _, v := range versions {
			list = append(list, strings.ToLower(v.Version))
		}
		writeJSON(w, map[string]any{"versions": list})
	case 3:
		for _, v := range versions {
			if strings.ToLower(v.Version) != parts[1] {
				continue
			}
			if parts[2] != parts[0]+"."+parts[1]+".nupkg" {
				break
			}
			if !v.PublishedAt.IsZero() {
				w.Header().Set("Last-Modified", v.PublishedAt.UTC().Format(http.TimeFormat))
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(v.archive)
			return
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

// latest returns the highest version published for the lowercased id.
func (s *Server) latest(id string, stableOnly bool) (stored, bool) {
	var best stored
	found := false
	for _, v := range s.packages[id] {
		if stableOnly && version.IsPrerelease(v.Version) {
			continue
		}
		if !found || version.IsNewer(best.Version, v.Version) {
			best = v
			found = true
		}
	}
	return best, found
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
