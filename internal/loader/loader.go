package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"Ocean3D/internal/logger"
	"Ocean3D/internal/renderer"

	"github.com/alitto/pond/v2"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Loader runs asset loads on a worker pool. Completion handlers are handed
// to the post function, which lets the render thread run them between frames.
type Loader struct {
	pool    pond.Pool
	ctx     context.Context
	cancel  context.CancelFunc
	fetcher *Fetcher
	post    func(func())
	log     *zap.Logger
}

type Option func(*Loader)

// WithPost sets how handlers are delivered. The default runs them on the
// worker goroutine.
func WithPost(post func(func())) Option {
	return func(l *Loader) { l.post = post }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func WithFetcher(f *Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

func New(workers int, opts ...Option) *Loader {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		ctx:     ctx,
		cancel:  cancel,
		fetcher: &Fetcher{},
		post:    func(fn func()) { fn() },
		log:     logger.Log,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool = pond.NewPool(workers, pond.WithContext(ctx))
	return l
}

// Close aborts queued loads and waits for running ones.
func (l *Loader) Close() {
	l.cancel()
	l.pool.StopAndWait()
}

// LoadTexture fetches and decodes an image. The texture repeats on both axes.
func (l *Loader) LoadTexture(url string, h Handlers[*renderer.Texture]) *Request[*renderer.Texture] {
	return submit(l, url, h, func(data []byte) (*renderer.Texture, error) {
		tex, err := decodeTexture(url, data)
		if err != nil {
			return nil, err
		}
		tex.SetWrap(renderer.Repeat, renderer.Repeat)
		return tex, nil
	})
}

// LoadModel fetches an OBJ (with MTL materials and textures) or a binary mesh.
func (l *Loader) LoadModel(url string, h Handlers[*renderer.Node]) *Request[*renderer.Node] {
	return submit(l, url, h, func(data []byte) (*renderer.Node, error) {
		return l.decodeModel(url, data)
	})
}

// submit posts the handler before resolving the request, so once a request
// is done its handler is already queued.
func submit[T any](l *Loader, url string, h Handlers[T], decode func([]byte) (T, error)) *Request[T] {
	req := newRequest[T](url)
	fail := func(err error) {
		var zero T
		err = &LoadError{URL: url, Err: err}
		l.log.Error("Asset load failed", zap.String("url", url), zap.Error(err))
		if h.OnError != nil {
			l.post(func() { h.OnError(err) })
		}
		req.resolve(zero, err)
	}

	if l.pool.Stopped() {
		fail(pond.ErrPoolStopped)
		return req
	}
	l.pool.Submit(func() {
		data, err := l.fetch(url, h.OnProgress)
		if err != nil {
			fail(err)
			return
		}
		value, err := decode(data)
		if err != nil {
			fail(err)
			return
		}
		l.log.Info("Asset loaded", zap.String("url", url), zap.Int("bytes", len(data)))
		if h.OnLoad != nil {
			l.post(func() { h.OnLoad(value) })
		}
		req.resolve(value, nil)
	})
	return req
}

func (l *Loader) fetch(url string, onProgress func(Progress)) ([]byte, error) {
	res, err := l.fetcher.open(l.ctx, url)
	if err != nil {
		return nil, err
	}
	defer res.body.Close()

	counter := &countingReader{r: res.body, total: res.size, step: progressStep}
	counter.report = func(p Progress) {
		l.log.Debug("Asset progress", zap.String("url", url), zap.Int64("loaded", p.Loaded), zap.Int64("total", p.Total))
		if onProgress != nil {
			l.post(func() { onProgress(p) })
		}
	}
	return io.ReadAll(counter)
}

func decodeTexture(name string, data []byte) (*renderer.Texture, error) {
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("payload is not an image (detected %q)", kind.MIME.Value)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	logger.Log.Debug("Image decoded", zap.String("name", name), zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return renderer.NewImageTexture(path.Base(name), img), nil
}

func (l *Loader) decodeModel(url string, data []byte) (*renderer.Node, error) {
	name := strings.TrimSuffix(path.Base(url), path.Ext(url))

	if filetype.Is(data, "gz") {
		mesh, err := DecodeMesh(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return mesh.Node(name)
	}

	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		return nil, fmt.Errorf("unsupported model payload %q", kind.MIME.Value)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("unsupported binary model payload")
	}

	open := func(ref string) (io.ReadCloser, error) {
		res, err := l.fetcher.open(l.ctx, Resolve(url, ref))
		if err != nil {
			return nil, err
		}
		return res.body, nil
	}
	model, err := ParseOBJ(name, bytes.NewReader(data), open)
	if err != nil {
		return nil, err
	}

	// MTL texture maps are resolved relative to the model.
	for material, ref := range model.TextureRefs {
		texURL := Resolve(url, ref)
		texData, err := l.fetch(texURL, nil)
		if err == nil {
			material.Map, err = decodeTexture(texURL, texData)
		}
		if err != nil {
			l.log.Warn("Material texture skipped", zap.String("material", material.Name), zap.String("url", texURL), zap.Error(err))
		}
	}
	return model.Node, nil
}
