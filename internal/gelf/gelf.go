// Package gelf mirrors standard log output to a Graylog input over UDP.
package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Syslog severities used for the level field.
const (
	LevelError   = 3
	LevelWarning = 4
	LevelInfo    = 6
)

const DefaultService = "oxiportal"

type message struct {
	Version      string  `json:"version"`
	Host         string  `json:"host"`
	ShortMessage string  `json:"short_message"`
	Timestamp    float64 `json:"timestamp"`
	Level        int     `json:"level"`
	Service      string  `json:"_service"`
	Table        string  `json:"_table,omitempty"`
}

// Writer sends one GELF message per Write, so it can sit behind
// log.SetOutput through io.MultiWriter.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
	now      func() time.Time
}

// New dials addr, e.g. "172.17.0.1:12201".
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "oxiportal-server"
	}
	if service == "" {
		service = DefaultService
	}
	return &Writer{conn: conn, hostname: hostname, service: service, now: time.Now}, nil
}

// Write never fails the log call; delivery is best effort.
func (w *Writer) Write(p []byte) (int, error) {
	short := stripDate(strings.TrimRight(string(p), "\n"))
	m := message{
		Version:      "1.1",
		Host:         w.hostname,
		ShortMessage: short,
		Timestamp:    float64(w.now().UnixNano()) / 1e9,
		Level:        level(short),
		Service:      w.service,
		Table:        tableOf(short),
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return len(p), nil
	}
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

// stripDate removes the "2006/01/02 15:04:05 " prefix of the log package.
func stripDate(msg string) string {
	if len(msg) > 20 && msg[4] == '/' && msg[7] == '/' && msg[10] == ' ' && msg[13] == ':' {
		return msg[20:]
	}
	return msg
}

func level(msg string) int {
	switch {
	case strings.Contains(msg, "PANIC:"), strings.Contains(msg, "Fatal"), strings.Contains(msg, "store failure"):
		return LevelError
	case strings.HasPrefix(msg, "Warning:"):
		return LevelWarning
	}
	return LevelInfo
}

// tableOf extracts the table from store failure messages
// ("... <table>: store failure: ...").
func tableOf(msg string) string {
	before, _, ok := strings.Cut(msg, ": store failure")
	if !ok {
		return ""
	}
	if i := strings.LastIndexByte(before, ' '); i >= 0 {
		before = before[i+1:]
	}
	return before
}
