package pipeline

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLoader records how many times each load method ran, so tests can
// pin down the at-most-once laziness guarantees.
type countingLoader struct {
	imageLoads   int
	captionLoads int
	imageErr     error
}

func (l *countingLoader) LoadImage() (image.Image, error) {
	l.imageLoads++
	if l.imageErr != nil {
		return nil, l.imageErr
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (l *countingLoader) LoadCaption() (string, error) {
	l.captionLoads++
	return "a caption", nil
}

func TestWorkItem_ImageLoadsLazilyAndOnce(t *testing.T) {
	loader := &countingLoader{}
	item := New(loader)
	assert.Equal(t, 0, loader.imageLoads, "construction must not touch the loader")

	first, err := item.Image()
	require.NoError(t, err)
	second, err := item.Image()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, loader.imageLoads)
}

func TestWorkItem_ImageLoadErrorIsNotCached(t *testing.T) {
	sentinel := errors.New("decode failed")
	loader := &countingLoader{imageErr: sentinel}
	item := New(loader)

	_, err := item.Image()
	assert.ErrorIs(t, err, sentinel)

	loader.imageErr = nil
	_, err = item.Image()
	assert.NoError(t, err, "a failed load must not poison later attempts")
	assert.Equal(t, 2, loader.imageLoads)
}

func TestWorkItem_DerivedCachedUntilBaseMutates(t *testing.T) {
	item := New(&countingLoader{})

	computes := 0
	gray := func(base image.Image) (any, error) {
		computes++
		return base.Bounds().Dx(), nil
	}

	v1, err := item.Derived("gray", gray)
	require.NoError(t, err)
	v2, err := item.Derived("gray", gray)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, computes, "derived view computed at most once per base image")

	require.NoError(t, item.SetImage(image.NewRGBA(image.Rect(0, 0, 5, 5))))
	v3, err := item.Derived("gray", gray)
	require.NoError(t, err)
	assert.Equal(t, 5, v3)
	assert.Equal(t, 2, computes, "SetImage must invalidate cached derived views")
}

func TestWorkItem_CaptionLoadsOnceAndIsMutable(t *testing.T) {
	loader := &countingLoader{}
	item := New(loader)

	text, err := item.Caption()
	require.NoError(t, err)
	assert.Equal(t, "a caption", text)

	_, err = item.Caption()
	require.NoError(t, err)
	assert.Equal(t, 1, loader.captionLoads)

	require.NoError(t, item.SetCaption("rewritten"))
	text, err = item.Caption()
	require.NoError(t, err)
	assert.Equal(t, "rewritten", text)
	assert.Equal(t, 1, loader.captionLoads, "an explicit caption must not trigger a reload")
}

func TestWorkItem_CloseIsIdempotentAndSealsAccess(t *testing.T) {
	item := New(&countingLoader{})
	_, err := item.Image()
	require.NoError(t, err)

	require.NoError(t, item.Close())
	require.NoError(t, item.Close(), "second close is a no-op, not an error")
	assert.True(t, item.Closed())

	_, err = item.Image()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = item.Caption()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = item.Derived("gray", func(image.Image) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, item.SetCaption("x"), ErrClosed)
	assert.ErrorIs(t, item.SetImage(image.NewRGBA(image.Rect(0, 0, 1, 1))), ErrClosed)
}
