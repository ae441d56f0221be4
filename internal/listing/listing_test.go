package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/pagesplit/internal/models"
)

const page = `<html><body>
<div class="nav"><a href="/home">Home</a></div>
<ol class="files">
  <li><a class="file" href="https://www.dropbox.com/sh/abc/Ha2_001.tif?dl=0">Ha2_001.tif</a></li>
  <li><a class="file" href="https://www.dropbox.com/sh/abc/Ha2%20files%20list.xls?dl=0">list</a></li>
  <li><a class="file" href="https://www.dropbox.com/sh/abc/Ha2_002.tif?dl=1">Ha2_002.tif</a></li>
  <li><a class="file" href="">empty</a></li>
  <li><a class="file" data-kind="folder" href="https://www.dropbox.com/sh/abc/sub">sub</a></li>
</ol>
</body></html>`

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		expected []string
	}{
		{
			name:     "class with descendant",
			selector: "ol.files a.file",
			expected: []string{"Ha2_001.tif", "Ha2 files list.xls", "Ha2_002.tif", "sub"},
		},
		{
			name:     "attribute value",
			selector: "a[data-kind=folder]",
			expected: []string{"sub"},
		},
		{
			name:     "class only",
			selector: ".nav a",
			expected: []string{"home"},
		},
		{
			name:     "default selector",
			selector: "",
			expected: []string{"home", "Ha2_001.tif", "Ha2 files list.xls", "Ha2_002.tif", "sub"},
		},
	}

	base, err := url.Parse("https://www.dropbox.com/sh/abc")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Parse(strings.NewReader(page), base, tt.selector)
			require.NoError(t, err)

			var names []string
			for _, f := range files {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestParseRewritesPreviewLinks(t *testing.T) {
	files, err := Parse(strings.NewReader(page), nil, "a.file")
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, models.RemoteFile{
		Name: "Ha2_001.tif",
		URL:  "https://www.dropbox.com/sh/abc/Ha2_001.tif?dl=1",
	}, files[0])
	assert.Equal(t, "https://www.dropbox.com/sh/abc/Ha2%20files%20list.xls?dl=1", files[1].URL)
	assert.Equal(t, "Ha2 files list.xls", files[1].Name)
}

func TestParseNoLinks(t *testing.T) {
	_, err := Parse(strings.NewReader(page), nil, "table a")
	assert.ErrorIs(t, err, ErrNoLinks)
}

func TestNestedMatchesAreNotDuplicated(t *testing.T) {
	doc := `<div class="a"><div class="a"><a href="x/one.tif">one</a></div></div>`
	files, err := Parse(strings.NewReader(doc), nil, "div.a a")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		link     string
		expected string
	}{
		{link: "https://host/a/b/Ha2_001.tif?dl=1", expected: "Ha2_001.tif"},
		{link: "https://host/a/Ha2+files+list.xls?dl=1", expected: "Ha2 files list.xls"},
		{link: "plain.tif", expected: "plain.tif"},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			name, err := FileName(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}

	_, err := FileName("https://host/bad%zz.tif")
	assert.Error(t, err)
}

func TestDirectLink(t *testing.T) {
	assert.Equal(t, "https://host/f.tif?dl=1", DirectLink("https://host/f.tif?dl=0"))
	assert.Equal(t, "https://host/f.tif?dl=1", DirectLink("https://host/f.tif?dl=1"))
	assert.Equal(t, "https://host/f.tif", DirectLink("https://host/f.tif"))
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/share" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="files/Ha2_003.tif?dl=0">x</a>`))
	}))
	defer server.Close()

	files, err := Fetch(context.Background(), server.Client(), server.URL+"/share", DefaultSelector)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Ha2_003.tif", files[0].Name)
	assert.Equal(t, server.URL+"/files/Ha2_003.tif?dl=1", files[0].URL)

	_, err = Fetch(context.Background(), server.Client(), server.URL+"/missing", DefaultSelector)
	assert.Error(t, err)
}
