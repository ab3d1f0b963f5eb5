package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// ProceduralScheme names generated assets, e.g. procedural://waternormals?size=256&seed=7.
const ProceduralScheme = "procedural"

// resource is an opened asset stream. size is -1 when unknown.
type resource struct {
	body io.ReadCloser
	size int64
}

// Fetcher opens asset URLs: http(s), file://, plain paths and procedural://.
type Fetcher struct {
	Client *http.Client
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (*resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain (possibly Windows) path.
		return openFile(rawURL)
	}

	switch u.Scheme {
	case "http", "https":
		client := f.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return &resource{body: resp.Body, size: resp.ContentLength}, nil
	case "file":
		return openFile(u.Path)
	case ProceduralScheme:
		return openProcedural(u)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func openFile(path string) (*resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	return &resource{body: file, size: size}, nil
}

func openProcedural(u *url.URL) (*resource, error) {
	if u.Host != "waternormals" {
		return nil, fmt.Errorf("unknown procedural asset %q", u.Host)
	}
	size, seed := 256, int64(1)
	q := u.Query()
	if s := q.Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 4 || v > 4096 {
			return nil, fmt.Errorf("invalid size %q", s)
		}
		size = v
	}
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", s)
		}
		seed = v
	}
	data, err := EncodeWaterNormals(size, seed)
	if err != nil {
		return nil, err
	}
	return &resource{body: io.NopCloser(bytes.NewReader(data)), size: int64(len(data))}, nil
}

// Resolve interprets ref relative to base the way a browser resolves links.
func Resolve(base, ref string) string {
	if r, err := url.Parse(ref); err == nil && len(r.Scheme) > 1 {
		return ref
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	if b, err := url.Parse(base); err == nil && len(b.Scheme) > 1 {
		r, err := url.Parse(filepath.ToSlash(ref))
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}
	return filepath.Join(filepath.Dir(base), ref)
}
