package webdav

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	headerDestination = "Destination"
	headerTotalLength = "OC-Total-Length"
)

type uploadSession struct {
	user        string
	destination string
	chunks      map[string][]byte
}

func sessionKey(user, id string) string {
	return user + "/" + id
}

func (s *LocalServer) openSession(w http.ResponseWriter, r *http.Request) {
	user, id := chi.URLParam(r, "user"), chi.URLParam(r, "session")
	dest := r.Header.Get(headerDestination)
	if dest == "" {
		http.Error(w, "missing Destination header", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(user, id)
	if _, ok := s.sessions[key]; ok {
		http.Error(w, "session already exists", http.StatusMethodNotAllowed)
		return
	}
	s.sessions[key] = &uploadSession{
		user:        user,
		destination: dest,
		chunks:      make(map[string][]byte),
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *LocalServer) putChunk(w http.ResponseWriter, r *http.Request) {
	user, id, name := chi.URLParam(r, "user"), chi.URLParam(r, "session"), chi.URLParam(r, "chunk")
	if _, err := strconv.Atoi(name); err != nil {
		http.Error(w, "chunk name must be numeric", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.ContentLength >= 0 && int64(len(data)) != r.ContentLength {
		http.Error(w, "short chunk body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey(user, id)]
	if !ok {
		http.Error(w, "upload session not found", http.StatusNotFound)
		return
	}
	if dest := r.Header.Get(headerDestination); dest != "" && dest != sess.destination {
		http.Error(w, "Destination does not match session", http.StatusBadRequest)
		return
	}
	sess.chunks[name] = data
	w.WriteHeader(http.StatusCreated)
}

func (s *LocalServer) abortSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(chi.URLParam(r, "user"), chi.URLParam(r, "session"))
	s.mu.Lock()
	_, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if !ok {
		http.Error(w, "upload session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assemble concatenates the session chunks in numeric order and writes the
// result to the session destination.
func (s *LocalServer) assemble(w http.ResponseWriter, r *http.Request) {
	user, id := chi.URLParam(r, "user"), chi.URLParam(r, "session")
	key := sessionKey(user, id)

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "upload session not found", http.StatusNotFound)
		return
	}

	dest := r.Header.Get(headerDestination)
	if dest == "" {
		dest = sess.destination
	}
	target, err := destinationPath(dest, user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(sess.chunks))
	for name := range sess.chunks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.Atoi(names[i])
		b, _ := strconv.Atoi(names[j])
		return a < b
	})
	var buf bytes.Buffer
	for _, name := range names {
		buf.Write(sess.chunks[name])
	}

	if v := r.Header.Get(headerTotalLength); v != "" {
		total, err := strconv.ParseInt(v, 10, 64)
		if err != nil || total != int64(buf.Len()) {
			http.Error(w, "OC-Total-Length does not match uploaded chunks", http.StatusBadRequest)
			return
		}
	}

	fs := s.FileSystem(user)
	f, err := fs.OpenFile(r.Context(), target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := f.Close(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("Server: assembled %d chunks into %s (%d bytes)", len(names), target, buf.Len())
	w.WriteHeader(http.StatusCreated)
}

// destinationPath turns a Destination URL into a path inside user's tree.
func destinationPath(dest, user string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", err
	}
	idx := strings.Index(u.Path, filesPrefix+user+"/")
	if idx < 0 {
		return "", &url.Error{Op: "destination", URL: dest, Err: os.ErrInvalid}
	}
	rel := u.Path[idx+len(filesPrefix+user):]
	if rel == "/" {
		return "", &url.Error{Op: "destination", URL: dest, Err: os.ErrInvalid}
	}
	return rel, nil
}
