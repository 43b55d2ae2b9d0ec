package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfRenderDPI is the resolution pages are rendered at for display
const pdfRenderDPI = 150

// ErrNoPageImage is returned when a PDF page cannot be rendered and carries
// no embedded image to fall back to
var ErrNoPageImage = errors.New("page has no image")

// PDF is an opened PDF document
type PDF struct {
	path     string
	pages    int
	conf     *model.Configuration
	pdftoppm string // empty when poppler is not installed
}

// OpenPDF reads the page count of the PDF at path
func OpenPDF(path string) (*PDF, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	pageCount, err := api.PageCount(f, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count for %s: %w", path, err)
	}

	p := &PDF{path: path, pages: pageCount, conf: conf}
	if bin, err := exec.LookPath("pdftoppm"); err == nil {
		p.pdftoppm = bin
	}
	return p, nil
}

func (p *PDF) Path() string   { return p.path }
func (p *PDF) PageCount() int { return p.pages }

// CanRender reports whether pages are rendered rather than extracted
func (p *PDF) CanRender() bool { return p.pdftoppm != "" }

// PageData returns the encoded image of page (0-based). With pdftoppm the
// page is rendered as PNG; otherwise the largest image embedded on the page
// is returned as stored.
func (p *PDF) PageData(ctx context.Context, page int) ([]byte, error) {
	if page < 0 || page >= p.pages {
		return nil, fmt.Errorf("page %d of %d: %w", page+1, p.pages, ErrEntryNotFound)
	}
	if p.pdftoppm != "" {
		return p.render(ctx, page+1)
	}
	return p.extract(page + 1)
}

// render runs pdftoppm for one 1-based page
func (p *PDF) render(ctx context.Context, pageNum int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "mekuri-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, p.pdftoppm,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(pdfRenderDPI),
		"-singlefile",
		p.path,
		outputPrefix,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return data, nil
}

// extract returns the largest embedded image of a 1-based page
func (p *PDF) extract(pageNum int) ([]byte, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages, err := api.ExtractImagesRaw(f, []string{strconv.Itoa(pageNum)}, p.conf)
	if err != nil {
		return nil, fmt.Errorf("extracting images of page %d: %w", pageNum, err)
	}

	var best *model.Image
	for _, images := range pages {
		for objNr := range images {
			img := images[objNr]
			if best == nil || img.Width*img.Height > best.Width*best.Height {
				best = &img
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("page %d: %w", pageNum, ErrNoPageImage)
	}
	return io.ReadAll(best)
}
