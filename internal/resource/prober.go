// internal/resource/prober.go
//
// Probers decide whether a named audio resource is available and playable.
//   - FSProber reads the resource header from an fs.FS (local asset dir).
//   - HTTPProber issues a HEAD request against an asset base URL.
//
// Both honour the caller's context so the loader can bound each attempt.

package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotPlayable is returned when a resource exists but is not recognisable audio.
var ErrNotPlayable = errors.New("resource is not playable audio")

// Prober checks a single resource.
type Prober interface {
	Probe(ctx context.Context, name string) error
}

// FSProber probes resources inside an fs.FS.
type FSProber struct {
	FS fs.FS
}

// Probe opens name and sniffs its header for a known audio container.
func (p FSProber) Probe(ctx context.Context, name string) error {
	type result struct{ err error }
	done := make(chan result, 1)
	go func() { done <- result{p.sniff(name)} }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		return r.err
	}
}

func (p FSProber) sniff(name string) error {
	f, err := p.FS.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if !isAudio(head[:n]) {
		return fmt.Errorf("%s: %w", name, ErrNotPlayable)
	}
	return nil
}

// isAudio recognises ID3-tagged or raw MPEG audio, RIFF/WAVE, Ogg and FLAC headers.
func isAudio(b []byte) bool {
	switch {
	case bytes.HasPrefix(b, []byte("ID3")):
		return true
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0: // MPEG frame sync
		return true
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return true
	case bytes.HasPrefix(b, []byte("OggS")), bytes.HasPrefix(b, []byte("fLaC")):
		return true
	}
	return false
}

// HTTPProber probes resources served under BaseURL.
type HTTPProber struct {
	BaseURL string
	Client  *http.Client
}

// Probe issues HEAD BaseURL/name and accepts any 2xx response not typed as text.
func (p HTTPProber) Probe(ctx context.Context, name string) error {
	u, err := url.JoinPath(p.BaseURL, name)
	if err != nil {
		return fmt.Errorf("join url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: status %d", name, resp.StatusCode)
	}
	// Static servers answer missing files with an HTML fallback page sometimes.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/") {
		return fmt.Errorf("%s: %w", name, ErrNotPlayable)
	}
	return nil
}
