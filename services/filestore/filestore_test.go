package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"essay.docx", "essay.docx"},
		{"My Essay (final).PDF", "My_Essay_final.pdf"},
		{"../../etc/passwd.doc", "passwd.doc"},
		{`C:\Users\me\homework.doc`, "homework.doc"},
		{"作业一.docx", "file.docx"},
		{".docx", "file.docx"},
		{"", "file"},
		{strings.Repeat("a", 150) + ".pdf", strings.Repeat("a", maxNameLength) + ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.name); got != tt.want {
				t.Errorf("SanitizeName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisk_Save(t *testing.T) {
	conf := new(core.Config)
	conf.Uploads.Dir = filepath.Join(t.TempDir(), "uploads")
	conf.Uploads.URLPrefix = "/uploads/"

	d, err := NewDisk(conf)
	require.NoError(t, err)

	first, err := d.Save("essay.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	second, err := d.Save("essay.pdf", strings.NewReader("other"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.True(t, strings.HasPrefix(first.URL, "/uploads/"), first.URL)
	assert.True(t, strings.HasSuffix(first.URL, "_essay.pdf"), first.URL)
	assert.Equal(t, filepath.Base(first.Path), strings.TrimPrefix(first.URL, "/uploads/"))

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestDisk_Remove(t *testing.T) {
	conf := new(core.Config)
	conf.Uploads.Dir = t.TempDir()
	conf.Uploads.URLPrefix = "/uploads"

	d, err := NewDisk(conf)
	require.NoError(t, err)

	f, err := d.Save("essay.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	require.NoError(t, d.Remove(f))

	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err), "file still there: %v", err)
	assert.NoError(t, d.Remove(f), "removing twice")
}
