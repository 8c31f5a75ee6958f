// Package remotetest provides an in-memory Microsoft To Do server for tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/harrisonrobin/priority-manager/pkg/remote"
)

// UnauthorizedBody is the payload returned with every 401.
const UnauthorizedBody = `{"error":{"code":"InvalidAuthenticationToken","message":"invalid_token"}}`

// Server fakes the subset of the Graph To Do API used by the graph client.
type Server struct {
	*httptest.Server

	// Token, when set, must be presented as a bearer token.
	Token string
	// PageSize splits collection responses into pages linked with
	// @odata.nextLink. Zero disables paging.
	PageSize int

	mu           sync.Mutex
	lists        []remote.TaskList
	tasks        map[string][]remote.Task
	failures     map[string]int
	unauthorized bool
	requests     []string
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tasks:    make(map[string][]remote.Task),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /me/todo/lists", s.handleListLists)
	mux.HandleFunc("POST /me/todo/lists", s.handleCreateList)
	mux.HandleFunc("GET /me/todo/lists/{id}/tasks", s.handleListTasks)
	mux.HandleFunc("POST /me/todo/lists/{id}/tasks", s.handleCreateTask)

	s.Server = httptest.NewServer(s.authorize(mux))
	t.Cleanup(s.Close)
	return s
}

// AddList registers a list and returns its id.
func (s *Server) AddList(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addList(name)
}

// AddTask registers a task. An empty due leaves the task undated.
func (s *Server) AddTask(listID, title, due string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := remote.Task{ID: uuid.NewString(), Title: title}
	if due != "" {
		task.DueDateTime = &remote.DateTimeTimeZone{DateTime: due, TimeZone: "UTC"}
	}
	s.tasks[listID] = append(s.tasks[listID], task)
	return task.ID
}

// Lists returns a snapshot of the lists.
func (s *Server) Lists() []remote.TaskList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.TaskList(nil), s.lists...)
}

// Tasks returns a snapshot of the tasks of listID.
func (s *Server) Tasks(listID string) []remote.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Task(nil), s.tasks[listID]...)
}

// FailList makes task requests for listID answer with status.
func (s *Server) FailList(listID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[listID] = status
}

// SetUnauthorized makes every request answer 401.
func (s *Server) SetUnauthorized(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorized = v
}

// Requests returns "<METHOD> <path>" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// CountRequests counts requests with the given method.
func (s *Server) CountRequests(method string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, method+" ") {
			n++
		}
	}
	return n
}

func (s *Server) addList(name string) string {
	l := remote.TaskList{ID: uuid.NewString(), DisplayName: name}
	s.lists = append(s.lists, l)
	return l.ID
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		denied := s.unauthorized ||
			(s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token)
		s.mu.Unlock()

		if denied {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, UnauthorizedBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	lists := append([]remote.TaskList(nil), s.lists...)
	s.mu.Unlock()
	writePage(w, r, s.URL+r.URL.Path, lists, s.PageSize)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DisplayName == "" {
		http.Error(w, `{"error":{"code":"invalidRequest"}}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.addList(body.DisplayName)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, remote.TaskList{ID: id, DisplayName: body.DisplayName})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	status, failing := s.failures[id]
	tasks, known := s.tasks[id]
	known = known || s.hasList(id)
	tasks = append([]remote.Task(nil), tasks...)
	s.mu.Unlock()

	switch {
	case failing:
		http.Error(w, `{"error":{"code":"serviceError"}}`, status)
	case !known:
		http.Error(w, `{"error":{"code":"ErrorItemNotFound"}}`, http.StatusNotFound)
	default:
		writePage(w, r, s.URL+r.URL.Path, tasks, s.PageSize)
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var task remote.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil || task.Title == "" {
		http.Error(w, `{"error":{"code":"invalidRequest"}}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status, failing := s.failures[id]
	known := s.hasList(id)
	if !failing && known {
		task.ID = uuid.NewString()
		s.tasks[id] = append(s.tasks[id], task)
	}
	s.mu.Unlock()

	switch {
	case failing:
		http.Error(w, `{"error":{"code":"serviceError"}}`, status)
	case !known:
		http.Error(w, `{"error":{"code":"ErrorItemNotFound"}}`, http.StatusNotFound)
	default:
		writeJSON(w, http.StatusCreated, task)
	}
}

func (s *Server) hasList(id string) bool {
	for _, l := range s.lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

func writePage[T any](w http.ResponseWriter, r *http.Request, self string, items []T, size int) {
	body := map[string]any{"value": items}
	if size > 0 {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		skip = min(max(skip, 0), len(items))
		end := min(skip+size, len(items))
		body["value"] = items[skip:end]
		if end < len(items) {
			body["@odata.nextLink"] = fmt.Sprintf("%s?skip=%d", self, end)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
