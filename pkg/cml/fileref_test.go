package cml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileRefSanitizes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"import.xml", "import.xml"},
		{"import_files/1.jpg", "import_files/1.jpg"},
		{`import_files\1.jpg`, "import_files/1.jpg"},
		{"../../etc/passwd", "etc/passwd"},
		{"/etc/passwd", "etc/passwd"},
		{"a/./b/../c.xml", "a/c.xml"},
		{"  import.xml  ", "import.xml"},
	}
	for _, tt := range tests {
		ref, err := NewFileRef(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, ref.Path, tt.raw)
	}
}

func TestNewFileRefRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "/", ".", "a/.."} {
		_, err := NewFileRef(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestFileRefKinds(t *testing.T) {
	img, err := NewFileRef("import_files/photo.JPG")
	require.NoError(t, err)
	assert.True(t, img.IsImage())
	assert.False(t, img.IsXML())

	xml, err := NewFileRef("offers.XML")
	require.NoError(t, err)
	assert.True(t, xml.IsXML())
	assert.False(t, xml.IsImage())

	zip, err := NewFileRef("import.ZIP")
	require.NoError(t, err)
	assert.True(t, zip.IsZip())

	other, err := NewFileRef("manual.pdf")
	require.NoError(t, err)
	assert.False(t, other.IsImage())
	assert.False(t, other.IsXML())
	assert.False(t, other.IsZip())
}

func TestFileRefState(t *testing.T) {
	root := t.TempDir()

	ref, err := NewFileRef("import_files/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, FilePrevious, ref.State(root))

	full := ref.FullPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("jpeg"), 0o644))
	assert.Equal(t, FileUpdated, ref.State(root))
}
