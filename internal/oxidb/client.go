// Package oxidb is a client for the object buckets of an oxidb-server.
//
// Wire format: every message is a 4-byte little-endian length followed by
// a JSON document. Requests carry a "cmd" field; responses are
// {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
package oxidb

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxFrame bounds a single response.
const MaxFrame = 64 << 20

// Client is one connection. Requests are serialised.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
}

// Connect dials host:port.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("oxidb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func writeFrame(w io.Writer, body []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return body, nil
}

// call sends one command and decodes its data into out (which may be
// nil). The context deadline, if any, bounds the round trip.
func (c *Client) call(ctx context.Context, req map[string]any, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("oxidb: marshal %v: %w", req["cmd"], err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := writeFrame(c.conn, body); err != nil {
		return fmt.Errorf("oxidb: send: %w", err)
	}
	raw, err := readFrame(c.conn)
	if err != nil {
		return fmt.Errorf("oxidb: %w", err)
	}
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("oxidb: decode response: %w", err)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &Error{Msg: msg}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("oxidb: decode %v data: %w", req["cmd"], err)
	}
	return nil
}

// Ping returns the server's reply, normally "pong".
func (c *Client) Ping(ctx context.Context) (string, error) {
	var s string
	err := c.call(ctx, map[string]any{"cmd": "ping"}, &s)
	return s, err
}

// CreateBucket creates bucket. An existing bucket is not an error.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	err := c.call(ctx, map[string]any{"cmd": "create_bucket", "bucket": bucket}, nil)
	if IsExists(err) {
		return nil
	}
	return err
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// PutObject stores data under bucket/key.
func (c *Client) PutObject(ctx context.Context, bucket, key string, obj Object) error {
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	req := map[string]any{
		"cmd":          "put_object",
		"bucket":       bucket,
		"key":          key,
		"data":         base64.StdEncoding.EncodeToString(obj.Data),
		"content_type": ct,
	}
	if len(obj.Metadata) > 0 {
		req["metadata"] = obj.Metadata
	}
	return c.call(ctx, req, nil)
}

// GetObject fetches bucket/key.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	var data struct {
		Content     string            `json:"content"`
		ContentType string            `json:"content_type"`
		Metadata    map[string]string `json:"metadata"`
	}
	if err := c.call(ctx, map[string]any{"cmd": "get_object", "bucket": bucket, "key": key}, &data); err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(data.Content)
	if err != nil {
		return nil, fmt.Errorf("oxidb: decode object %s/%s: %w", bucket, key, err)
	}
	ct := data.ContentType
	if ct == "" {
		ct = data.Metadata["content_type"]
	}
	return &Object{Data: b, ContentType: ct, Metadata: data.Metadata}, nil
}

// DeleteObject removes bucket/key.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	return c.call(ctx, map[string]any{"cmd": "delete_object", "bucket": bucket, "key": key}, nil)
}

func hasMessage(err error, words ...string) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	msg := strings.ToLower(e.Msg)
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether the server said the object or bucket is
// missing.
func IsNotFound(err error) bool {
	return hasMessage(err, "not found", "no such")
}

// IsExists reports whether the server rejected a create as a duplicate.
func IsExists(err error) bool {
	return hasMessage(err, "already exists")
}
