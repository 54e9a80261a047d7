package pyenv

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

type archiveExtractor func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec RuntimeSpec) error

func extractorFor(url string) (archiveExtractor, error) {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip, nil
	case strings.HasSuffix(url, ".tar.gz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec RuntimeSpec) error {
			reader, err := gzip.NewReader(f)
			if err != nil {
				return err
			}
			defer reader.Close()

			return extractTar(reader, f, bar, destPath, spec)
		}, nil
	case strings.HasSuffix(url, ".tar.xz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec RuntimeSpec) error {
			reader, err := xz.NewReader(f)
			if err != nil {
				return err
			}

			return extractTar(reader, f, bar, destPath, spec)
		}, nil
	}

	return nil, eris.Errorf("archive format of %s is not supported", url)
}

// entryDest maps an archive entry to its destination, applying the strip
// count. An empty result means the entry is consumed entirely by the strip
// and should be skipped.
func entryDest(destPath, item string, strip int) string {
	parts := strings.Split(filepath.Clean(filepath.FromSlash(item)), string(filepath.Separator))
	if len(parts) <= strip {
		return ""
	}

	return filepath.Join(destPath, strings.Join(parts[strip:], string(filepath.Separator)))
}

func openEntryDest(destPath, item string, spec RuntimeSpec) (*os.File, string, error) {
	dest := entryDest(destPath, item, spec.Strip)
	if dest == "" {
		return nil, "", nil
	}

	err := os.MkdirAll(filepath.Dir(dest), 0770)
	if err != nil {
		return nil, "", eris.Wrapf(err, "failed to create directory %s", filepath.Dir(dest))
	}

	handle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "failed to create file %s", dest)
	}

	return handle, dest, nil
}

func extractZip(f *os.File, bar *progressbar.ProgressBar, destPath string, spec RuntimeSpec) error {
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return err
	}

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		destHandle, dest, err := openEntryDest(destPath, item.Name, spec)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		itemHandle, err := item.Open()
		if err != nil {
			destHandle.Close()
			return eris.Wrapf(err, "failed to open archive entry %s", item.Name)
		}

		err = copyEntry(destHandle, itemHandle, f, bar)
		itemHandle.Close()
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "failed to extract %s to %s", item.Name, dest)
		}
	}

	return nil
}

func extractTar(r io.Reader, f *os.File, bar *progressbar.ProgressBar, destPath string, spec RuntimeSpec) error {
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		destHandle, dest, err := openEntryDest(destPath, item.Name, spec)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		if item.Typeflag == tar.TypeSymlink {
			destHandle.Close()
			err = os.Remove(dest)
			if err != nil {
				return eris.Wrapf(err, "failed to remove placeholder file %s", dest)
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		err = copyEntry(destHandle, archive, f, bar)
		if err == nil {
			err = destHandle.Chmod(fi.Mode())
		}
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "failed to extract %s to %s", item.Name, dest)
		}
	}

	return nil
}

// copyEntry streams a single archive entry while advancing the progress bar
// based on how far the extractor has read into the downloaded file.
func copyEntry(dest io.Writer, src io.Reader, f *os.File, bar *progressbar.ProgressBar) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if err != nil && n < 1 {
			if err == io.EOF {
				return nil
			}
			return err
		}

		_, err = dest.Write(buf[:n])
		if err != nil {
			return err
		}

		pos, err := f.Seek(0, io.SeekCurrent)
		if err == nil {
			bar.Set64(pos)
		}
	}
}
