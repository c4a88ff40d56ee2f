// Package camera keeps the most recent frame of a single RTSP camera in
// memory and manages the connection lifecycle around it.
package camera

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint defaults.
const (
	DefaultPort       = 554
	DefaultStreamPath = "stream1"
	ConnectionType    = "RTSP"

	redacted = "***"
)

// Endpoint identifies a camera stream. It is immutable once created.
// The password never appears in String, LogValue or RedactedURI.
type Endpoint struct {
	Host     string
	Username string
	Password string
	Port     int
	Path     string
}

// NewEndpoint returns an endpoint with defaults applied for a zero port
// or an empty path.
func NewEndpoint(host, username, password string, port int, path string) Endpoint {
	if port == 0 {
		port = DefaultPort
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		path = DefaultStreamPath
	}
	return Endpoint{
		Host:     strings.TrimSpace(host),
		Username: username,
		Password: password,
		Port:     port,
		Path:     path,
	}
}

// Validate checks that the endpoint can be turned into a URI.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidEndpoint)
	}
	if strings.ContainsAny(e.Host, "/@?# ") {
		return fmt.Errorf("%w: malformed host %q", ErrInvalidEndpoint, e.Host)
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidEndpoint, e.Port)
	}
	return nil
}

// URI returns the connection URI including credentials. It must only be
// handed to the capture backend.
func (e Endpoint) URI() string {
	path, query, _ := strings.Cut(e.Path, "?")
	if query == "" {
		query = "tcp"
	} else {
		query += "&tcp"
	}
	u := url.URL{
		Scheme:   "rtsp",
		Host:     e.hostPort(),
		Path:     "/" + path,
		RawQuery: query,
	}
	if e.Username != "" || e.Password != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u.String()
}

// RedactedURI returns the URI with both credentials replaced by a
// placeholder and without the transport hint.
func (e Endpoint) RedactedURI() string {
	return fmt.Sprintf("rtsp://%s:%s@%s/%s", redacted, redacted, e.hostPort(), e.Path)
}

// String implements fmt.Stringer with the redacted URI.
func (e Endpoint) String() string {
	return e.RedactedURI()
}

// LogValue implements slog.LogValuer.
func (e Endpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", e.Host),
		slog.Int("port", e.Port),
		slog.String("path", e.Path),
		slog.String("username", e.Username),
	)
}

func (e Endpoint) hostPort() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
