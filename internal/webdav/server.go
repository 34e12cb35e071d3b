package webdav

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/webdav"
)

const (
	filesPrefix   = "/remote.php/dav/files/"
	uploadsPrefix = "/remote.php/dav/uploads/"
	sharesPath    = "/ocs/v2.php/apps/files_sharing/api/v1/shares"
)

func init() {
	for _, m := range []string{"PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE", "LOCK", "UNLOCK"} {
		chi.RegisterMethod(m)
	}
}

// Entry is one request seen by the server.
type Entry struct {
	Method string
	Path   string
	Header http.Header
	Size   int64
	Status int
}

// LocalServer emulates the parts of a Nextcloud server the storage client talks to:
// per-user WebDAV file trees, chunked upload sessions, OCS public shares and
// public share downloads.
type LocalServer struct {
	router     chi.Router
	authUser   string
	authPass   string
	authEnable bool

	mu       sync.Mutex
	users    map[string]*webdav.Handler
	sessions map[string]*uploadSession
	shares   map[string]*share
	journal  []Entry
	nextID   int
	now      func() time.Time
}

func NewLocalServer(authUser, authPass string) *LocalServer {
	s := &LocalServer{
		authUser:   authUser,
		authPass:   authPass,
		authEnable: authUser != "" && authPass != "",
		users:      make(map[string]*webdav.Handler),
		sessions:   make(map[string]*uploadSession),
		shares:     make(map[string]*share),
		now:        time.Now,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Handle(filesPrefix+"{user}", http.HandlerFunc(s.serveFiles))
		r.Handle(filesPrefix+"{user}/*", http.HandlerFunc(s.serveFiles))
		r.Route(uploadsPrefix+"{user}", func(r chi.Router) {
			r.Use(s.requireOwner)
			r.MethodFunc("MKCOL", "/{session}", s.openSession)
			r.Put("/{session}/{chunk}", s.putChunk)
			r.MethodFunc("MOVE", "/{session}/.file", s.assemble)
			r.Delete("/{session}", s.abortSession)
		})
		r.Post(sharesPath, s.createShare)
	})
	r.Get("/s/{token}/download/{name}", s.publicDownload)
	s.router = r

	return s
}

func (s *LocalServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Journal returns a copy of every request served so far.
func (s *LocalServer) Journal() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.journal))
	copy(out, s.journal)
	return out
}

// ResetJournal drops the recorded requests.
func (s *LocalServer) ResetJournal() {
	s.mu.Lock()
	s.journal = nil
	s.mu.Unlock()
}

// FileSystem returns the file tree of the given user, creating it on first use.
func (s *LocalServer) FileSystem(user string) webdav.FileSystem {
	return s.handler(user).FileSystem
}

func (s *LocalServer) handler(user string) *webdav.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[user]
	if !ok {
		h = &webdav.Handler{
			Prefix:     filesPrefix + user,
			FileSystem: webdav.NewMemFS(),
			LockSystem: webdav.NewMemLS(),
			Logger: func(r *http.Request, err error) {
				if err != nil {
					log.Printf("WebDAV Error: %s %s: %v", r.Method, r.URL.Path, err)
				}
			},
		}
		s.users[user] = h
	}
	return h
}

func (s *LocalServer) serveFiles(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if !s.owns(r, user) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	s.handler(user).ServeHTTP(w, r)
}

func (s *LocalServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		log.Printf("Server: %s %s -> %d", r.Method, r.URL.Path, sw.status)
		s.mu.Lock()
		s.journal = append(s.journal, Entry{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Size:   r.ContentLength,
			Status: sw.status,
		})
		s.mu.Unlock()
	})
}

func (s *LocalServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if s.authEnable && (!ok || !s.authenticate(user, pass)) {
			log.Printf("Auth failed for %s", user)
			w.Header().Set("WWW-Authenticate", `Basic realm="filevault"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *LocalServer) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.owns(r, chi.URLParam(r, "user")) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// owns reports whether the authenticated caller may touch user's tree.
func (s *LocalServer) owns(r *http.Request, user string) bool {
	if !s.authEnable {
		return user != ""
	}
	name, _, _ := r.BasicAuth()
	return name == user
}

// requestUser is the user a request acts as.
func requestUser(r *http.Request) string {
	name, _, _ := r.BasicAuth()
	return strings.TrimSpace(name)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (s *LocalServer) authenticate(username, password string) bool {
	if !s.authEnable {
		return true
	}
	return username == s.authUser && password == s.authPass
}
