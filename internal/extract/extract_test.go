package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// fakeRun simulates pdftoppm and tesseract. The pdftoppm branch writes real
// page files so the glob in ocr() finds them; the tesseract branch returns
// canned text keyed by image name.
func fakeRun(t *testing.T, pages int, perPage func(img string) ([]byte, error)) func(context.Context, string, ...string) ([]byte, error) {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for i := 1; i <= pages; i++ {
				f := fmt.Sprintf("%s-%d.png", prefix, i)
				if err := os.WriteFile(f, []byte("png"), 0o644); err != nil {
					t.Fatalf("writing fake page image: %v", err)
				}
			}
			return nil, nil
		case "tesseract":
			return perPage(args[0])
		default:
			t.Fatalf("unexpected command %q", name)
			return nil, nil
		}
	}
}

func TestExtract_NativeSufficient(t *testing.T) {
	long := strings.Repeat("word ", 200)
	ranOCR := false

	e := New(nil)
	e.native = func(string) (string, error) { return long, nil }
	e.run = func(context.Context, string, ...string) ([]byte, error) {
		ranOCR = true
		return nil, nil
	}

	res, err := e.Extract(context.Background(), "paper.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodNative {
		t.Errorf("Method = %v, want native", res.Method)
	}
	if res.Text != Collapse(long) {
		t.Errorf("Text not collapsed native output")
	}
	if ranOCR {
		t.Error("OCR ran despite sufficient text layer")
	}
}

func TestExtract_ThinLayerFallsBackToOCR(t *testing.T) {
	e := New(nil)
	e.native = func(string) (string, error) { return "Cover Page", nil }
	e.run = fakeRun(t, 2, func(img string) ([]byte, error) {
		return []byte("scanned text from " + img), nil
	})

	res, err := e.Extract(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("Method = %v, want ocr", res.Method)
	}
	if res.Pages != 2 || res.FailedPages != 0 {
		t.Errorf("Pages = %d, FailedPages = %d, want 2, 0", res.Pages, res.FailedPages)
	}
	if !strings.Contains(res.Text, "scanned text") {
		t.Errorf("Text = %q, missing OCR output", res.Text)
	}
}

func TestExtract_NativeErrorFallsBackToOCR(t *testing.T) {
	e := New(nil)
	e.native = func(string) (string, error) { return "", errors.New("malformed xref") }
	e.run = fakeRun(t, 1, func(string) ([]byte, error) {
		return []byte("recovered by OCR"), nil
	})

	res, err := e.Extract(context.Background(), "broken.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodOCR {
		t.Errorf("Method = %v, want ocr", res.Method)
	}
	if res.Text != "recovered by OCR" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestExtract_FailedPagesAreSkipped(t *testing.T) {
	e := New(nil)
	e.native = func(string) (string, error) { return "", nil }
	e.run = fakeRun(t, 3, func(img string) ([]byte, error) {
		if strings.HasSuffix(img, "-2.png") {
			return nil, errors.New("tesseract: empty page")
		}
		return []byte("page ok"), nil
	})

	res, err := e.Extract(context.Background(), "partial.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Pages != 3 || res.FailedPages != 1 {
		t.Errorf("Pages = %d, FailedPages = %d, want 3, 1", res.Pages, res.FailedPages)
	}
	if res.Text != "page ok page ok" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestExtract_AllPagesFail(t *testing.T) {
	e := New(nil)
	e.native = func(string) (string, error) { return "", nil }
	e.run = fakeRun(t, 2, func(string) ([]byte, error) {
		return nil, errors.New("tesseract crashed")
	})

	_, err := e.Extract(context.Background(), "hopeless.pdf")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
}

func TestExtract_RasterizationFailure(t *testing.T) {
	e := New(nil)
	e.native = func(string) (string, error) { return "", nil }
	e.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Syntax Error: couldn't read xref table"), errors.New("exit status 1")
	}

	_, err := e.Extract(context.Background(), "garbage.pdf")
	if err == nil || !strings.Contains(err.Error(), "rasterizing") {
		t.Fatalf("err = %v, want rasterization error", err)
	}
}

func TestExtract_MinNativeLenOption(t *testing.T) {
	short := "just a handful of words here"

	e := New(nil, WithMinNativeLen(10))
	e.native = func(string) (string, error) { return short, nil }
	e.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("OCR ran despite lowered threshold")
		return nil, nil
	}

	res, err := e.Extract(context.Background(), "short.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodNative {
		t.Errorf("Method = %v, want native", res.Method)
	}
}

func TestTesseractArgs(t *testing.T) {
	e := New(nil,
		WithLanguage("deu"),
		WithPageSegMode(6),
		WithEngineMode(1),
		WithExtraArgs("-c", "preserve_interword_spaces=1"),
	)

	got := e.tesseractArgs("page-1.png")
	want := []string{"page-1.png", "stdout", "-l", "deu", "--oem", "1", "--psm", "6", "-c", "preserve_interword_spaces=1"}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSortByPage(t *testing.T) {
	images := []string{"p-10.png", "p-2.png", "p-1.png", "p-21.png"}
	sortByPage(images)
	want := []string{"p-1.png", "p-2.png", "p-10.png", "p-21.png"}
	for i := range want {
		if images[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", images, want)
		}
	}
}

func TestMethodString(t *testing.T) {
	tests := []struct {
		m    Method
		want string
	}{
		{MethodNone, "none"},
		{MethodNative, "native"},
		{MethodOCR, "ocr"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Method(%d).String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}
