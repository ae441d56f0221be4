package models

import (
	"math"
	"strings"
)

// NoPage marks a slot in the page label column that has no page behind it.
const NoPage = "none"

// Record represents one scanned image row from the metadata spreadsheet
type Record struct {
	SourceName string   `json:"source_name" yaml:"source_name"`
	Catalog    *Catalog `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	PageLabels []string `json:"page_labels" yaml:"page_labels"` // index 0 is recto (left), 1 is verso (right)
	SortOrder  int      `json:"sort_order" yaml:"sort_order"`
}

// Catalog holds the bibliographic columns carried alongside each image
type Catalog struct {
	CallNumber      string `json:"call_number" yaml:"call_number"`
	Title           string `json:"title" yaml:"title"`
	PublicationDate string `json:"publication_date" yaml:"publication_date"`
}

// UnsortedOrder is assigned to records without a usable sort order so they land last.
const UnsortedOrder = math.MaxInt

// ImageName returns the file name of the source image, adding ext when missing
func (r Record) ImageName(ext string) string {
	suffix := "." + strings.TrimPrefix(ext, ".")
	if strings.HasSuffix(strings.ToLower(r.SourceName), strings.ToLower(suffix)) {
		return r.SourceName
	}
	return r.SourceName + suffix
}

// BaseName returns the source name up to the first dot
func (r Record) BaseName() string {
	return BaseName(r.SourceName)
}

// Splittable reports whether the scan holds exactly two real pages
func (r Record) Splittable() bool {
	if len(r.PageLabels) != 2 {
		return false
	}
	for _, label := range r.PageLabels {
		if label == NoPage {
			return false
		}
	}
	return true
}

// FallbackLabel returns the first label that names a page, or "" when none do
func (r Record) FallbackLabel() string {
	for _, label := range r.PageLabels {
		if label != NoPage {
			return label
		}
	}
	return ""
}

// RemoteFile is one downloadable entry of the remote file listing
type RemoteFile struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// BaseName returns the remote file name up to the first dot
func (f RemoteFile) BaseName() string {
	return BaseName(f.Name)
}

// IsImage reports whether the remote file is a scanned TIFF
func (f RemoteFile) IsImage() bool {
	lower := strings.ToLower(f.Name)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

// IsSpreadsheet reports whether the remote file is a metadata workbook
func (f RemoteFile) IsSpreadsheet() bool {
	lower := strings.ToLower(f.Name)
	for _, ext := range []string{".xls", ".xlsx", ".xlsm", ".csv"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// BaseName returns name up to its first dot.
func BaseName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
