// camctl exercises a running camera-api from the command line.
//
// Usage:
//
//	camctl [-addr http://localhost:8000] <command> [args]
//
// Commands: health, status, connect <ip> [-user u] [-pass p] [-port 554] [-path stream1],
// frame [-o file.jpg], snapshot, info, disconnect.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/camframe/internal/httpc"
)

func main() {
	addr := flag.String("addr", envOr("CAMFRAME_ADDR", "http://localhost:8000"), "camera-api base URL")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := httpc.New(*addr)
	if err := run(ctx, client, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var se *httpc.StatusError
		if errors.As(err, &se) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: camctl [-addr URL] <health|status|connect|frame|snapshot|info|disconnect> [args]")
	flag.PrintDefaults()
}

func run(ctx context.Context, c *httpc.Client, cmd string, args []string) error {
	var out map[string]any

	switch cmd {
	case "health":
		if err := c.Get(ctx, "/health", &out); err != nil {
			return err
		}
	case "status":
		if err := c.Get(ctx, "/api/status", &out); err != nil {
			return err
		}
	case "info":
		if err := c.Get(ctx, "/api/info", &out); err != nil {
			return err
		}
	case "snapshot":
		if err := c.Get(ctx, "/api/snapshot", &out); err != nil {
			return err
		}
	case "disconnect":
		if err := c.Post(ctx, "/api/disconnect", nil, &out); err != nil {
			return err
		}
	case "connect":
		return connect(ctx, c, args)
	case "frame":
		return frame(ctx, c, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return printJSON(out)
}

func connect(ctx context.Context, c *httpc.Client, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	user := fs.String("user", os.Getenv("CAMERA_USERNAME"), "camera username")
	pass := fs.String("pass", os.Getenv("CAMERA_PASSWORD"), "camera password")
	port := fs.Int("port", 554, "RTSP port")
	path := fs.String("path", "stream1", "stream path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("connect needs the camera ip")
	}

	req := map[string]any{
		"ip_address":  fs.Arg(0),
		"username":    *user,
		"password":    *pass,
		"rtsp_port":   *port,
		"stream_path": *path,
	}
	var out map[string]any
	if err := c.Post(ctx, "/api/connect", req, &out); err != nil {
		return err
	}
	if err := printJSON(out); err != nil {
		return err
	}
	if ok, _ := out["success"].(bool); !ok {
		return errors.New("connect failed")
	}
	return nil
}

func frame(ctx context.Context, c *httpc.Client, args []string) error {
	fs := flag.NewFlagSet("frame", flag.ContinueOnError)
	output := fs.String("o", "", "write the JPEG to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var out struct {
		Success   bool    `json:"success"`
		Frame     string  `json:"frame"`
		Timestamp float64 `json:"timestamp"`
		Error     string  `json:"error"`
	}
	if err := c.Get(ctx, "/api/frame", &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("no frame: %s", out.Error)
	}

	data, err := base64.StdEncoding.DecodeString(out.Frame)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if *output == "" {
		fmt.Printf("frame: %d bytes at %.3f\n", len(data), out.Timestamp)
		return nil
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", *output, len(data))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
