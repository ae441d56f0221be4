// Package listing reads the shared-folder web page that lists the scanned
// images and turns its download links into remote files.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/lehigh-university-libraries/pagesplit/internal/models"
)

// DefaultSelector picks every link on the page.
const DefaultSelector = "a[href]"

// ErrNoLinks is returned when the selector matches no download links.
var ErrNoLinks = errors.New("could not find file download links")

// Fetch downloads the listing page at pageURL and parses it with selector
func Fetch(ctx context.Context, client *http.Client, pageURL, selector string) ([]models.RemoteFile, error) {
	if client == nil {
		client = http.DefaultClient
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	slog.Info("Fetching remote file listing", "url", pageURL)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned status %d", resp.StatusCode)
	}

	files, err := Parse(resp.Body, base, selector)
	if err != nil {
		return nil, err
	}
	slog.Info("Extracted file links", "count", len(files))
	return files, nil
}

// Parse extracts the remote files linked from an HTML listing. Relative
// links are resolved against base when it is not nil.
func Parse(r io.Reader, base *url.URL, selector string) ([]models.RemoteFile, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelector
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	nodes := selectAll(doc, parseSelector(selector))
	if len(nodes) == 0 {
		return nil, ErrNoLinks
	}

	var files []models.RemoteFile
	for _, n := range nodes {
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			continue
		}

		file, err := remoteFile(href, base)
		if err != nil {
			slog.Debug("Skipping link", "href", href, "error", err)
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

func remoteFile(href string, base *url.URL) (models.RemoteFile, error) {
	if base != nil {
		ref, err := url.Parse(href)
		if err != nil {
			return models.RemoteFile{}, err
		}
		href = base.ResolveReference(ref).String()
	}

	link := DirectLink(href)
	name, err := FileName(link)
	if err != nil {
		return models.RemoteFile{}, err
	}
	if name == "" {
		return models.RemoteFile{}, fmt.Errorf("no file name in %q", link)
	}
	return models.RemoteFile{Name: name, URL: link}, nil
}

// DirectLink turns a shared-folder preview link ending in dl=0 into a
// direct download link.
func DirectLink(link string) string {
	if strings.HasSuffix(link, "dl=0") {
		return strings.TrimSuffix(link, "0") + "1"
	}
	return link
}

// FileName returns the decoded last path segment of a download link
func FileName(link string) (string, error) {
	name := link
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "?dl=1")

	decoded, err := url.QueryUnescape(name)
	if err != nil {
		return "", fmt.Errorf("failed to decode file name: %w", err)
	}
	return decoded, nil
}
