package filestore

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
)

const maxNameLength = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Disk stores uploads in a single directory, served under a URL prefix.
type Disk struct {
	dir       string
	urlPrefix string
}

var _ submission.FileStore = (*Disk)(nil)

// NewDisk creates the upload directory when missing.
func NewDisk(conf *core.Config) (*Disk, error) {
	if err := os.MkdirAll(conf.Uploads.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &Disk{
		dir:       conf.Uploads.Dir,
		urlPrefix: "/" + strings.Trim(conf.Uploads.URLPrefix, "/"),
	}, nil
}

func (d *Disk) Dir() string {
	return d.dir
}

// Save writes r under a unique "<uuid>_<sanitized name>" file name.
func (d *Disk) Save(name string, r io.Reader) (submission.StoredFile, error) {
	fname := uuid.NewString() + "_" + SanitizeName(name)
	fpath := filepath.Join(d.dir, fname)

	f, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return submission.StoredFile{}, errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fpath)
		return submission.StoredFile{}, errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(fpath)
		return submission.StoredFile{}, errors.Wrap(err, "closing file")
	}
	return submission.StoredFile{
		Path: fpath,
		URL:  path.Join(d.urlPrefix, fname),
	}, nil
}

// Remove deletes a file saved by Save. A missing file is not an error.
func (d *Disk) Remove(f submission.StoredFile) error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// SanitizeName keeps the base name of a client file name, restricted to ASCII letters,
// digits, dots, dashes and underscores. The extension is preserved.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if ext = unsafeChars.ReplaceAllString(ext, ""); ext == "." {
		ext = ""
	}
	if base == "" {
		base = "file"
	}
	if len(base) > maxNameLength {
		base = base[:maxNameLength]
	}
	return base + ext
}
