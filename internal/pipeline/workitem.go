package pipeline

import (
	"errors"
	"image"
	"sync"
)

// ErrClosed is returned by any WorkItem accessor once the item has been
// closed. The sink stage closes each item that reaches it; no further
// access to image bytes is permitted afterward.
var ErrClosed = errors.New("pipeline: work item is closed")

// Loader lazily produces the base image and caption text for a WorkItem. A
// Source constructs one per yielded item; concrete loaders (reading from
// disk, an HTTP scrape, a remote API) are external collaborators out of
// scope for this package.
type Loader interface {
	LoadImage() (image.Image, error)
	LoadCaption() (string, error)
}

// DerivedFunc computes a cached view of a WorkItem's current base image
// (e.g. a grayscale conversion, a perceptual hash). It must be pure with
// respect to the image passed to it.
type DerivedFunc func(base image.Image) (any, error)

// WorkItem threads a mutable image + caption pair through the pipeline. It
// is owned by at most one Stage queue or worker at any instant (single
// writer), so internal state needs no locking beyond a guard against
// concurrent misuse during Close, but Process implementations are free to
// call WorkItem methods from the single goroutine that currently owns the
// item without additional synchronization.
type WorkItem struct {
	mu      sync.Mutex
	loader  Loader
	closed  bool
	hasImg  bool
	image   image.Image
	hasCap  bool
	caption string
	derived map[string]any
}

// New wraps a Loader in a WorkItem. Sources construct WorkItems this way and
// hand ownership to the Driver.
func New(loader Loader) *WorkItem {
	return &WorkItem{loader: loader}
}

// Image returns the base image, loading it from the Loader on first access.
func (w *WorkItem) Image() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if !w.hasImg {
		img, err := w.loader.LoadImage()
		if err != nil {
			return nil, err
		}
		w.image = img
		w.hasImg = true
	}
	return w.image, nil
}

// SetImage replaces the base image, invalidating every cached derived
// view. Each derived view is computed at most once per mutation of the
// base image.
func (w *WorkItem) SetImage(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.image = img
	w.hasImg = true
	w.derived = nil
	return nil
}

// Derived returns the cached result of fn for the given key, computing it
// (against the current base image) only if absent or invalidated by a prior
// SetImage call.
func (w *WorkItem) Derived(key string, fn DerivedFunc) (any, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	if v, ok := w.derived[key]; ok {
		w.mu.Unlock()
		return v, nil
	}
	base := w.image
	hasImg := w.hasImg
	loader := w.loader
	w.mu.Unlock()

	if !hasImg {
		var err error
		base, err = loader.LoadImage()
		if err != nil {
			return nil, err
		}
		if err := w.SetImage(base); err != nil {
			return nil, err
		}
	}

	v, err := fn(base)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.derived == nil {
		w.derived = make(map[string]any)
	}
	w.derived[key] = v
	return v, nil
}

// Caption returns the caption text, loading it from the Loader on first
// access and caching an empty string rather than re-reading on every call.
func (w *WorkItem) Caption() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", ErrClosed
	}
	if !w.hasCap {
		text, err := w.loader.LoadCaption()
		if err != nil {
			return "", err
		}
		w.caption = text
		w.hasCap = true
	}
	return w.caption, nil
}

// SetCaption overwrites the mutable caption text.
func (w *WorkItem) SetCaption(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.caption = text
	w.hasCap = true
	return nil
}

// Close releases the item. It is idempotent: calling it more than once is a
// no-op, not an error.
func (w *WorkItem) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.image = nil
	w.derived = nil
	return nil
}

// Closed reports whether Close has already run.
func (w *WorkItem) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
