package xps

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'xps.export'
func tracer() tracing.Trace {
	return tracing.Select("xps.export")
}

// Options control an export.
type Options struct {
	// HumanReadable adds the source text to every glyph run.
	HumanReadable bool
	// FullFonts embeds whole font files instead of subsets.
	FullFonts bool
	// StrictParts turns duplicate part names into ErrDuplicatePart.
	StrictParts bool

	Fonts      FontSource
	Properties DocumentProperties
	Clock      func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Fonts: GoFonts,
		Clock: time.Now,
	}
}

type Option func(*Options)

func WithHumanReadable(v bool) Option {
	return func(o *Options) { o.HumanReadable = v }
}

func WithFontSource(src FontSource) Option {
	return func(o *Options) { o.Fonts = src }
}

func WithFullFontEmbedding(v bool) Option {
	return func(o *Options) { o.FullFonts = v }
}

func WithStrictParts(v bool) Option {
	return func(o *Options) { o.StrictParts = v }
}

func WithProperties(p DocumentProperties) Option {
	return func(o *Options) { o.Properties = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Clock = now }
}

// Exporter turns laid out pages into XPS documents. It holds configuration
// only and may be shared; every export runs in its own Session.
type Exporter struct {
	opts Options
}

func New(opts ...Option) *Exporter {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.Fonts == nil {
		o.Fonts = GoFonts
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return &Exporter{opts: o}
}

// NewSession starts an export driven page by page.
func (e *Exporter) NewSession() *Session {
	pkg := NewPackage()
	pkg.Properties = e.opts.Properties
	pkg.Strict = e.opts.StrictParts
	pkg.now = e.opts.Clock
	return &Session{
		opts:  e.opts,
		fonts: NewTypefaceRegistry(e.opts.Fonts, e.opts.FullFonts),
		pkg:   pkg,
	}
}

// Export writes pages with their bands as one document to w. Nothing is
// written when the export fails.
func (e *Exporter) Export(w io.Writer, pages ...*Page) error {
	s := e.NewSession()
	for _, p := range pages {
		if err := s.BeginPage(p); err != nil {
			return err
		}
		for _, b := range p.Bands {
			if err := s.ExportBand(b); err != nil {
				return err
			}
		}
		if err := s.EndPage(); err != nil {
			return err
		}
	}
	return s.Finish(w)
}

// SaveFile exports pages into the named file. The file is replaced only when
// the export succeeds.
func (e *Exporter) SaveFile(name string, pages ...*Page) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), ".xps-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = e.Export(f, pages...); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err = os.Rename(f.Name(), name); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Session is the state of a single export: counters, the open page, the
// typeface registry and the package under construction. A Session is not
// safe for concurrent use.
type Session struct {
	opts  Options
	fonts *TypefaceRegistry
	pkg   *Package

	pictures int // embedded rasters so far
	pages    int // pages begun so far
	current  *pageWriter
	finished bool
}

// Package returns the package under construction.
func (s *Session) Package() *Package { return s.pkg }

// Fonts returns the typeface registry of the session.
func (s *Session) Fonts() *TypefaceRegistry { return s.fonts }

func (s *Session) BeginPage(p *Page) error {
	if s.finished {
		return ErrFinished
	}
	if s.current != nil {
		return fmt.Errorf("begin page %d: %w", s.pages+1, ErrPageOpen)
	}
	pw := newPageWriter(s, p, s.pages+1)
	if err := pw.begin(); err != nil {
		return err
	}
	s.pages++
	tracer().Debugf("page %d begins, %s x %s", pw.number, Float(pw.width), Float(pw.height))
	s.current = pw
	return nil
}

// ExportBand serializes a band and the objects it contains onto the open
// page.
func (s *Session) ExportBand(b *Band) error {
	if s.current == nil {
		return ErrNoPage
	}
	if b == nil {
		return nil
	}
	return s.current.object(b)
}

func (s *Session) EndPage() error {
	if s.current == nil {
		return ErrNoPage
	}
	pw := s.current
	s.current = nil
	if err := pw.end(); err != nil {
		return err
	}
	tracer().Debugf("page %d written to %s with %d resources", pw.number, pw.path, len(pw.rels))
	return nil
}

// Finish embeds the typefaces, assembles the package and copies it to w.
func (s *Session) Finish(w io.Writer) error {
	var buf bytes.Buffer
	zs := NewZipStorage(&buf)
	if err := s.FinishTo(zs); err != nil {
		return err
	}
	if err := zs.Close(); err != nil {
		return fmt.Errorf("close package: %w", err)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return fmt.Errorf("write package: %w", err)
	}
	return nil
}

// FinishTo embeds the typefaces and writes every part into st.
func (s *Session) FinishTo(st Storage) error {
	if s.finished {
		return ErrFinished
	}
	if s.current != nil {
		return fmt.Errorf("finish: %w", ErrPageOpen)
	}
	s.finished = true

	if err := s.fonts.ExportAll(s.pkg); err != nil {
		return err
	}
	if err := s.pkg.Finalize(st); err != nil {
		return err
	}
	tracer().Infof("xps package written: %d pages, %d typefaces, %d pictures",
		s.pkg.PageCount(), s.fonts.Len(), s.pictures)
	return nil
}
