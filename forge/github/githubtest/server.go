// Package githubtest provides an in-process fake of the GitHub REST
// endpoints used by the provisioner. It records every call so tests can
// assert which side effects happened.
package githubtest

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/repoprov/digester"
)

// Call is one request received by the fake.
type Call struct {
	Method string
	Path   string
}

// Commit is one file committed through the contents
// API.
type Commit struct {
	Repo    string
	Path    string
	Message string
	Content []byte
	Branch  string
}

// Server fakes api.github.com for a fixed set of
// tokens.
type Server struct {
	*httptest.Server

	mu sync.Mutex
	// users maps token to login.
	users map[string]string
	// repos maps full name to its files.
	repos map[string]map[string][]byte
	// failures maps a file path to the status the
	// contents API answers with.
	failures map[string]int
	calls    []Call
	commits  []Commit
}

// NewServer starts a fake accepting the given
// token-to-login map. Close it when done.
func NewServer(users map[string]string) *Server {
	srv := &Server{
		users:    users,
		repos:    make(map[string]map[string][]byte),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", srv.handleUser)
	mux.HandleFunc("POST /user/repos", srv.handleCreateRepo)
	mux.HandleFunc(
		"PUT /repos/{owner}/{repo}/contents/{path...}",
		srv.handleCreateFile,
	)

	srv.Server = httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				srv.mu.Lock()
				srv.calls = append(srv.calls, Call{
					Method: r.Method,
					Path:   r.URL.Path,
				})
				srv.mu.Unlock()

				mux.ServeHTTP(w, r)
			},
		),
	)

	return srv
}

// FailUpload makes the contents API answer status for
// path.
func (s *Server) FailUpload(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[path] = status
}

// AddRepo pre-creates an empty repository.
func (s *Server) AddRepo(fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repos[fullName] = make(map[string][]byte)
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

// CountCalls returns how many calls matched method and
// path prefix.
func (s *Server) CountCalls(method, prefix string) int {
	n := 0

	for _, c := range s.Calls() {
		if c.Method == method &&
			strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}

	return n
}

// Commits returns the committed files in order.
func (s *Server) Commits() []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Commit(nil), s.commits...)
}

// RepoExists reports whether fullName was created.
func (s *Server) RepoExists(fullName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.repos[fullName]

	return ok
}

func (s *Server) login(r *http.Request) (string, bool) {
	tok, ok := strings.CutPrefix(
		r.Header.Get("Authorization"), "Bearer ",
	)
	if !ok {
		return "", false
	}

	login, ok := s.users[tok]

	return login, ok
}

func (s *Server) handleUser(
	w http.ResponseWriter,
	r *http.Request,
) {
	login, ok := s.login(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"message": "Bad credentials",
		})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"login": login,
	})
}

type createRepoBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

func (s *Server) handleCreateRepo(
	w http.ResponseWriter,
	r *http.Request,
) {
	login, ok := s.login(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"message": "Bad credentials",
		})

		return
	}

	var body createRepoBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Problems parsing JSON",
		})

		return
	}

	fullName := login + "/" + body.Name

	s.mu.Lock()
	_, exists := s.repos[fullName]

	if !exists {
		files := make(map[string][]byte)
		if body.AutoInit {
			files["README.md"] = []byte("# " + body.Name + "\n")
		}

		s.repos[fullName] = files
	}
	s.mu.Unlock()

	if exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Repository creation failed.",
			"errors": []map[string]any{{
				"resource": "Repository",
				"code":     "custom",
				"field":    "name",
				"message":  "name already exists on this account",
			}},
		})

		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name":           body.Name,
		"full_name":      fullName,
		"private":        body.Private,
		"description":    body.Description,
		"html_url":       "https://github.com/" + fullName,
		"clone_url":      "https://github.com/" + fullName + ".git",
		"default_branch": "main",
		"owner":          map[string]any{"login": login},
	})
}

type createFileBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
}

func (s *Server) handleCreateFile(
	w http.ResponseWriter,
	r *http.Request,
) {
	if _, ok := s.login(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"message": "Bad credentials",
		})

		return
	}

	fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
	path := r.PathValue("path")

	var body createFileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Problems parsing JSON",
		})

		return
	}

	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "content is not valid Base64",
		})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.failures[path]; ok {
		writeJSON(w, status, map[string]any{
			"message": http.StatusText(status),
		})

		return
	}

	files, ok := s.repos[fullName]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "Not Found",
		})

		return
	}

	if _, exists := files[path]; exists && body.SHA == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Invalid request.\n\n\"sha\" wasn't supplied.",
		})

		return
	}

	files[path] = content
	s.commits = append(s.commits, Commit{
		Repo:    fullName,
		Path:    path,
		Message: body.Message,
		Content: content,
		Branch:  body.Branch,
	})

	blob := digester.BlobSHA(content)

	writeJSON(w, http.StatusCreated, map[string]any{
		"content": map[string]any{
			"name": path,
			"path": path,
			"sha":  blob,
		},
		"commit": map[string]any{
			"sha":     blob[:7] + "c0ffee",
			"message": body.Message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
