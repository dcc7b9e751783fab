package fonts

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fontFS = fstest.MapFS{
	"Inter/Inter-Bold.ttf":              {Data: []byte("x")},
	"Inter/Inter-Regular.ttf":           {Data: []byte("x")},
	"Open_Sans/OpenSans-Italic.otf":     {Data: []byte("x")},
	"Open_Sans/README.txt":              {Data: []byte("x")},
	"Google_Sans_Code/GoogleSans-B.ttf": {Data: []byte("x")},
}

func TestScan(t *testing.T) {
	list, err := Scan(fontFS)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Inter/Inter-Bold.ttf",
		"Inter/Inter-Regular.ttf",
		"Open_Sans/OpenSans-Italic.otf",
		"Google_Sans_Code/GoogleSans-B.ttf",
	}, list)
}

func TestSearchCandidates(t *testing.T) {
	assert.Equal(t, []string{"Inter/Inter-Regular.ttf", "Inter", "Inter/Inter", "Inter/Inter-Regular"}, SearchCandidates("Inter/Inter-Regular.ttf"))
	assert.Equal(t, []string{"Open Sans"}, SearchCandidates(" Open Sans "))
}

func TestFind(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"Inter/Inter-Bold.ttf", "Inter/Inter-Bold.ttf"},
		{"inter", "Inter/Inter-Regular.ttf"},
		{"Open Sans", "Open_Sans/OpenSans-Italic.otf"},
		{"google sans", "Google_Sans_Code/GoogleSans-B.ttf"},
		{"Inter/Inter-Light.ttf", "Inter/Inter-Regular.ttf"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := Find(fontFS, tt.search)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMissing(t *testing.T) {
	_, err := Find(fontFS, "Roboto")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = Find(fontFS, "")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
