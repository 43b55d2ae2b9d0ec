package archive

import (
	"fmt"
)

// ContentKind says what an archive holds
type ContentKind int

const (
	ContentEmpty ContentKind = iota
	ContentImages
	ContentNestedArchives
)

func (k ContentKind) String() string {
	switch k {
	case ContentImages:
		return "images"
	case ContentNestedArchives:
		return "nested archives"
	default:
		return "empty"
	}
}

// Contents is the result of Analyze. Names are sorted entry names of the
// images, or of the nested archives when there are no images.
type Contents struct {
	Kind  ContentKind
	Names []string
}

// Options controls how archive entries are listed
type Options struct {
	Sort   SortStrategy
	Filter *Filter
}

func (o Options) sorter() SortStrategy {
	if o.Sort == nil {
		return &NaturalSortStrategy{}
	}
	return o.Sort
}

// ListImages returns the visible image entries of r, sorted
func ListImages(r Reader, opts Options) []string {
	var names []string
	for _, e := range r.Entries() {
		if IsImage(e.Name) && !opts.Filter.Ignored(e.Name) {
			names = append(names, e.Name)
		}
	}
	return opts.sorter().Sort(names)
}

// Analyze opens the archive at path and reports whether it holds images,
// only nested archives, or nothing viewable.
func Analyze(path string, opts Options) (Contents, error) {
	r, err := Open(path)
	if err != nil {
		return Contents{}, err
	}
	defer r.Close()
	return AnalyzeReader(r, opts), nil
}

// AnalyzeReader is Analyze for an already opened archive
func AnalyzeReader(r Reader, opts Options) Contents {
	if images := ListImages(r, opts); len(images) > 0 {
		return Contents{Kind: ContentImages, Names: images}
	}

	var nested []string
	for _, e := range r.Entries() {
		if IsArchive(e.Name) && !opts.Filter.Ignored(e.Name) {
			nested = append(nested, e.Name)
		}
	}
	if len(nested) > 0 {
		return Contents{Kind: ContentNestedArchives, Names: opts.sorter().Sort(nested)}
	}
	return Contents{Kind: ContentEmpty}
}

// Describe formats c for log lines and the status overlay
func (c Contents) Describe() string {
	if c.Kind == ContentEmpty {
		return c.Kind.String()
	}
	return fmt.Sprintf("%d %s", len(c.Names), c.Kind)
}
