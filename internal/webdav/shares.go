package webdav

import (
	"encoding/xml"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	shareTypePublicLink = 3
	expirationLayout    = "2006-01-02 15:04:05"
)

type share struct {
	id         int
	user       string
	path       string
	expiration time.Time
}

type shareRequest struct {
	Path        string `json:"path"`
	ShareType   int    `json:"shareType"`
	Permissions int    `json:"permissions"`
	ExpireDate  string `json:"expireDate"`
}

type ocsMeta struct {
	Status     string `xml:"status"`
	StatusCode int    `xml:"statuscode"`
	Message    string `xml:"message"`
}

type ocsShare struct {
	ID          int    `xml:"id"`
	ShareType   int    `xml:"share_type"`
	Permissions int    `xml:"permissions"`
	Owner       string `xml:"uid_owner"`
	Path        string `xml:"path"`
	Token       string `xml:"token"`
	Expiration  string `xml:"expiration"`
	URL         string `xml:"url"`
}

type ocsResponse struct {
	XMLName xml.Name  `xml:"ocs"`
	Meta    ocsMeta   `xml:"meta"`
	Data    *ocsShare `xml:"data,omitempty"`
}

func writeOCS(w http.ResponseWriter, status int, resp ocsResponse) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	if err := xml.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Server: encode OCS response: %v", err)
	}
}

func ocsFailure(w http.ResponseWriter, status int, msg string) {
	writeOCS(w, status, ocsResponse{Meta: ocsMeta{Status: "failure", StatusCode: status, Message: msg}})
}

// createShare handles OCS public link creation for files of the calling user.
func (s *LocalServer) createShare(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("OCS-APIRequest") != "true" {
		ocsFailure(w, http.StatusBadRequest, "CSRF check failed")
		return
	}
	user := requestUser(r)
	if user == "" {
		ocsFailure(w, http.StatusUnauthorized, "missing user")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ocsFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	var req shareRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		ocsFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ShareType != shareTypePublicLink {
		ocsFailure(w, http.StatusBadRequest, "unsupported share type")
		return
	}

	var expiration time.Time
	if req.ExpireDate != "" {
		expiration, err = time.ParseInLocation(time.DateOnly, req.ExpireDate, time.Local)
		if err != nil {
			ocsFailure(w, http.StatusBadRequest, "invalid expireDate")
			return
		}
		y, m, d := s.now().Date()
		if expiration.Before(time.Date(y, m, d, 0, 0, 0, 0, time.Local)) {
			ocsFailure(w, http.StatusBadRequest, "expiration date is in the past")
			return
		}
	}

	if _, err := s.FileSystem(user).Stat(r.Context(), req.Path); err != nil {
		ocsFailure(w, http.StatusNotFound, "wrong path, file/folder does not exist")
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
	s.mu.Lock()
	s.nextID++
	sh := &share{id: s.nextID, user: user, path: req.Path, expiration: expiration}
	s.shares[token] = sh
	s.mu.Unlock()

	exp := ""
	if !expiration.IsZero() {
		exp = expiration.Format(expirationLayout)
	}
	log.Printf("Server: shared %s for %s (token %s)", req.Path, user, token)
	writeOCS(w, http.StatusOK, ocsResponse{
		Meta: ocsMeta{Status: "ok", StatusCode: http.StatusOK, Message: "OK"},
		Data: &ocsShare{
			ID:          sh.id,
			ShareType:   shareTypePublicLink,
			Permissions: req.Permissions,
			Owner:       user,
			Path:        req.Path,
			Token:       token,
			Expiration:  exp,
			URL:         "/s/" + token,
		},
	})
}

// publicDownload serves a shared file without authentication.
func (s *LocalServer) publicDownload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sh, ok := s.shares[chi.URLParam(r, "token")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !sh.expiration.IsZero() && s.now().After(sh.expiration.Add(24*time.Hour)) {
		http.Error(w, "share expired", http.StatusGone)
		return
	}

	f, err := s.FileSystem(sh.user).OpenFile(r.Context(), sh.path, 0, 0)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(sh.path)+`"`)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
