// Package extract turns PDFs into text and fixed-size chunks.
//
// Extraction prefers the embedded text layer and falls back to OCR through
// the poppler and tesseract command line tools when the layer is missing or
// too thin to be the real content. Scanned documents often carry a few
// hundred characters of boilerplate in their text layer, which is why the
// threshold is a length, not a presence check.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrNoText means neither the text layer nor OCR produced any usable text.
// The document is skipped; the record's metadata still syncs.
var ErrNoText = errors.New("no extractable text")

// Defaults for the extraction pipeline. The OCR knobs mirror tesseract's
// own defaults; DPI 300 is the usual floor for clean recognition.
const (
	DefaultMinNativeLen = 500
	DefaultLang         = "eng"
	DefaultPSM          = 3
	DefaultOEM          = 3
	DefaultDPI          = 300
)

// Method records which extraction stage produced the text.
type Method int

const (
	MethodNone Method = iota
	MethodNative
	MethodOCR
)

// String returns the method name used in manifests and logs.
func (m Method) String() string {
	switch m {
	case MethodNative:
		return "native"
	case MethodOCR:
		return "ocr"
	default:
		return "none"
	}
}

// Result is the outcome of extracting one document.
type Result struct {
	Text        string
	Method      Method
	Pages       int // pages rasterized for OCR, 0 for native extraction
	FailedPages int // pages skipped due to OCR errors
}

// Extractor runs the native-then-OCR pipeline.
type Extractor struct {
	minNativeLen int
	lang         string
	psm          int
	oem          int
	dpi          int
	extraArgs    []string

	log *zap.SugaredLogger

	// Seams for tests: text-layer extraction and external tool invocation.
	native func(path string) (string, error)
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinNativeLen sets the text-layer length below which OCR kicks in.
func WithMinNativeLen(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.minNativeLen = n
		}
	}
}

// WithLanguage sets the tesseract language.
func WithLanguage(lang string) Option {
	return func(e *Extractor) {
		if lang != "" {
			e.lang = lang
		}
	}
}

// WithPageSegMode sets tesseract's page segmentation mode.
func WithPageSegMode(psm int) Option {
	return func(e *Extractor) {
		e.psm = psm
	}
}

// WithEngineMode sets tesseract's OCR engine mode.
func WithEngineMode(oem int) Option {
	return func(e *Extractor) {
		e.oem = oem
	}
}

// WithDPI sets the rasterization resolution.
func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// WithExtraArgs appends raw arguments to every tesseract invocation.
func WithExtraArgs(args ...string) Option {
	return func(e *Extractor) {
		e.extraArgs = append(e.extraArgs, args...)
	}
}

// New builds an Extractor; zero-value knobs pick the defaults.
func New(log *zap.SugaredLogger, opts ...Option) *Extractor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Extractor{
		minNativeLen: DefaultMinNativeLen,
		lang:         DefaultLang,
		psm:          DefaultPSM,
		oem:          DefaultOEM,
		dpi:          DefaultDPI,
		log:          log,
		native:       nativeText,
		run:          runCommand,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract pulls text from the PDF at path: the embedded text layer first,
// OCR when the layer is shorter than the configured minimum.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	text, err := e.native(path)
	if err != nil {
		e.log.Warnw("text layer unreadable, trying OCR", "path", filepath.Base(path), "error", err)
	} else if collapsed := Collapse(text); len(collapsed) >= e.minNativeLen {
		return Result{Text: collapsed, Method: MethodNative}, nil
	}

	return e.ocr(ctx, path)
}

// ocr rasterizes the document and runs tesseract page by page. A page that
// fails is skipped and the rest of the document continues; only a fully
// empty outcome is an error.
func (e *Extractor) ocr(ctx context.Context, path string) (Result, error) {
	dir, err := os.MkdirTemp("", "bibsync-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("creating OCR workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	rasterArgs := []string{"-r", strconv.Itoa(e.dpi), "-png", path, prefix}
	if out, err := e.run(ctx, "pdftoppm", rasterArgs...); err != nil {
		return Result{}, fmt.Errorf("rasterizing %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("globbing page images: %w", err)
	}
	if len(images) == 0 {
		return Result{}, fmt.Errorf("%w: no pages rasterized from %s", ErrNoText, filepath.Base(path))
	}
	sortByPage(images)

	var b strings.Builder
	failed := 0
	for _, img := range images {
		out, err := e.run(ctx, "tesseract", e.tesseractArgs(img)...)
		if err != nil {
			failed++
			e.log.Warnw("OCR page failed, skipping", "image", filepath.Base(img), "error", err)
			continue
		}
		b.Write(out)
		b.WriteByte('\n')
	}

	text := Collapse(b.String())
	if text == "" {
		return Result{}, fmt.Errorf("%w: OCR produced nothing (%d of %d pages failed)", ErrNoText, failed, len(images))
	}
	return Result{Text: text, Method: MethodOCR, Pages: len(images), FailedPages: failed}, nil
}

// tesseractArgs assembles one per-image tesseract invocation.
func (e *Extractor) tesseractArgs(image string) []string {
	args := []string{
		image, "stdout",
		"-l", e.lang,
		"--oem", strconv.Itoa(e.oem),
		"--psm", strconv.Itoa(e.psm),
	}
	return append(args, e.extraArgs...)
}

// pageSuffix pulls the page index out of a pdftoppm output name.
var pageSuffix = regexp.MustCompile(`-(\d+)\.png$`)

// sortByPage orders page images numerically. pdftoppm zero-pads indices
// only within one run, so lexical order breaks past page 9 on reruns.
func sortByPage(images []string) {
	sort.Slice(images, func(i, j int) bool {
		return pageIndex(images[i]) < pageIndex(images[j])
	})
}

func pageIndex(name string) int {
	m := pageSuffix.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// nativeText reads the embedded text layer. Unreadable pages are skipped;
// a malformed document surfaces as an error from pdf.Open.
func nativeText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// runCommand executes an external tool. Stdout is the payload; stderr is
// returned on failure for error context.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
