// Package oxidbtest runs an in-process server speaking the oxidb object
// bucket protocol, for tests.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
)

type object struct {
	Content     string            `json:"content"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Server holds buckets in memory.
type Server struct {
	ln      net.Listener
	mu      sync.Mutex
	buckets map[string]map[string]object
	fail    string
}

// NewServer listens on a loopback port and stops at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{ln: ln, buckets: map[string]map[string]object{}}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

// Host and Port of the listener.
func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) Port() int {
	_, p, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(p)
	return n
}

// SetFail makes every following command fail with msg. An empty msg
// restores normal operation.
func (s *Server) SetFail(msg string) {
	s.mu.Lock()
	s.fail = msg
	s.mu.Unlock()
}

// Objects returns the number of keys stored in bucket.
func (s *Server) Objects(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[bucket])
}

func (s *Server) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			return
		}
		body := make([]byte, binary.LittleEndian.Uint32(hdr[:]))
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		var req map[string]any
		resp := map[string]any{"ok": true}
		if err := json.Unmarshal(body, &req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else if data, err := s.exec(req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else {
			resp["data"] = data
		}
		out, _ := json.Marshal(resp)
		binary.LittleEndian.PutUint32(hdr[:], uint32(len(out)))
		if _, err := conn.Write(append(hdr[:], out...)); err != nil {
			return
		}
	}
}

func (s *Server) exec(req map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != "" {
		return nil, errors.New(s.fail)
	}
	bucket, _ := req["bucket"].(string)
	key, _ := req["key"].(string)
	switch req["cmd"] {
	case "ping":
		return "pong", nil
	case "create_bucket":
		if _, ok := s.buckets[bucket]; ok {
			return nil, errors.New("bucket already exists")
		}
		s.buckets[bucket] = map[string]object{}
		return nil, nil
	case "put_object":
		b, ok := s.buckets[bucket]
		if !ok {
			return nil, errors.New("bucket not found")
		}
		o := object{}
		o.Content, _ = req["data"].(string)
		o.ContentType, _ = req["content_type"].(string)
		if meta, ok := req["metadata"].(map[string]any); ok {
			o.Metadata = map[string]string{}
			for k, v := range meta {
				o.Metadata[k], _ = v.(string)
			}
		}
		b[key] = o
		return map[string]any{"key": key, "size": len(o.Content)}, nil
	case "get_object":
		o, ok := s.buckets[bucket][key]
		if !ok {
			return nil, errors.New("object not found")
		}
		return o, nil
	case "delete_object":
		if _, ok := s.buckets[bucket][key]; !ok {
			return nil, errors.New("object not found")
		}
		delete(s.buckets[bucket], key)
		return nil, nil
	}
	return nil, errors.New("unknown command")
}
