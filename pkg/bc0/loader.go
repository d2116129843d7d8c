package bc0

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageExt is the file extension of cached CBOR program images.
const ImageExt = ".bc0c"

// Loader loads program images by path.
type Loader interface {
	LoadProgram(path string) (*Program, error)
}

// TextLoader parses .bc0 hex dumps.
type TextLoader struct {
	Cache map[string]*Program
}

// NewTextLoader creates a new TextLoader.
func NewTextLoader() *TextLoader {
	return &TextLoader{
		Cache: make(map[string]*Program),
	}
}

func (l *TextLoader) LoadProgram(path string) (*Program, error) {
	if p, ok := l.Cache[path]; ok {
		return p, nil
	}
	p, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: parsing %s: %w", path, err)
	}
	l.Cache[path] = p
	return p, nil
}

// ImageLoader serves programs from CBOR image files, delegating to the
// parent loader when no up-to-date image exists.
type ImageLoader struct {
	Parent Loader
	// WriteCache stores an image next to the source after a parent load.
	WriteCache bool
	Cache      map[string]*Program
}

// NewImageLoader creates a new ImageLoader.
func NewImageLoader(parent Loader, writeCache bool) *ImageLoader {
	return &ImageLoader{
		Parent:     parent,
		WriteCache: writeCache,
		Cache:      make(map[string]*Program),
	}
}

// ImagePath returns the cached image path for a .bc0 source path.
func ImagePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ImageExt
}

func (l *ImageLoader) LoadProgram(path string) (*Program, error) {
	if p, ok := l.Cache[path]; ok {
		return p, nil
	}

	if filepath.Ext(path) == ImageExt {
		p, err := readImage(path)
		if err != nil {
			return nil, err
		}
		l.Cache[path] = p
		return p, nil
	}

	imagePath := ImagePath(path)
	if fresh(imagePath, path) {
		p, err := readImage(imagePath)
		if err == nil {
			logger().Debugf("using cached image %s", imagePath)
			l.Cache[path] = p
			return p, nil
		}
		logger().Warningf("ignoring unreadable image %s: %v", imagePath, err)
	}

	p, err := l.Parent.LoadProgram(path)
	if err != nil {
		return nil, err
	}
	if l.WriteCache {
		if err := writeImage(imagePath, p); err != nil {
			return nil, err
		}
		logger().Infof("wrote image %s", imagePath)
	}
	l.Cache[path] = p
	return p, nil
}

func readImage(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: reading %s: %w", path, err)
	}
	p, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("image: decoding %s: %w", path, err)
	}
	return p, nil
}

func writeImage(path string, p *Program) error {
	data, err := EncodeImage(p)
	if err != nil {
		return fmt.Errorf("image: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("image: writing %s: %w", path, err)
	}
	return nil
}

// fresh reports whether image exists and is not older than source.
func fresh(image, source string) bool {
	is, err := os.Stat(image)
	if err != nil {
		return false
	}
	ss, err := os.Stat(source)
	if err != nil {
		return false
	}
	return !is.ModTime().Before(ss.ModTime())
}
