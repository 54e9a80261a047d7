package pyenv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/quizproject/devtools/pkg/project"
)

const manualInstallHint = "please install Python " + RequiredPython + " yourself and make sure it's on your PATH"

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// InstallRuntime downloads the standalone CPython build pinned in the runtime
// catalog and unpacks it into the project-local runtime directory. A failed
// install never leaves a partial runtime directory behind.
func InstallRuntime(ctx context.Context, root string) (*Interpreter, error) {
	catalog, err := LoadCatalog(filepath.Join(root, project.CatalogFile))
	if err != nil {
		return nil, eris.Wrapf(ErrRuntimeInstall, "%v; %s", err, manualInstallHint)
	}

	spec, err := catalog.ForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, eris.Wrapf(ErrRuntimeInstall, "%v; %s", err, manualInstallHint)
	}

	project.PrintSubtask(fmt.Sprintf("Python %s:  %s", catalog.Version, spec.URL))

	archive, size, err := download(ctx, spec)
	if err != nil {
		return nil, eris.Wrapf(ErrRuntimeInstall, "%v; %s", err, manualInstallHint)
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	runtimePath := filepath.Join(root, project.RuntimeDir)
	err = unpack(archive, size, runtimePath, spec)
	if err != nil {
		// don't leave a partially extracted runtime behind
		if rmErr := os.RemoveAll(runtimePath); rmErr != nil {
			project.PrintError(fmt.Sprintf("could not remove the partial runtime directory %s: %v", runtimePath, rmErr))
		}
		return nil, eris.Wrapf(ErrRuntimeInstall, "%v; %s", err, manualInstallHint)
	}

	pyPath := filepath.Join(runtimePath, filepath.FromSlash(spec.Python))
	version, err := Probe(ctx, pyPath)
	if err == nil && !requiredRange.Check(version) {
		err = eris.Errorf("the downloaded runtime reports version %s which doesn't match %s", version, RequiredPython)
	}
	if err != nil {
		if rmErr := os.RemoveAll(runtimePath); rmErr != nil {
			project.PrintError(fmt.Sprintf("could not remove the broken runtime directory %s: %v", runtimePath, rmErr))
		}
		return nil, eris.Wrapf(ErrRuntimeInstall, "%v; %s", err, manualInstallHint)
	}

	return &Interpreter{Path: pyPath, Version: version}, nil
}

// download streams the archive to a temporary file while checking the pinned
// sha256. The returned handle is positioned at the start of the file.
func download(ctx context.Context, spec RuntimeSpec) (*os.File, int64, error) {
	client := &http.Client{
		Timeout: time.Minute * 30,
	}

	tmpPath := filepath.Join(os.TempDir(), "qdev_py_dl."+nanoid.New()+".tmp")
	arHandle, err := os.Create(tmpPath)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "failed to create %s", tmpPath)
	}

	cleanup := func() {
		arHandle.Close()
		os.Remove(tmpPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		cleanup()
		return nil, 0, eris.Wrapf(err, "failed to build request for %s", spec.URL)
	}

	resp, err := client.Do(req)
	if err != nil {
		cleanup()
		return nil, 0, eris.Wrapf(err, "failed to start download for %s", spec.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cleanup()
		return nil, 0, eris.Errorf("download of %s failed with status %s", spec.URL, resp.Status)
	}

	hash := sha256.New()
	bar := getProgressBar(resp.ContentLength, "     download")
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if err != nil && n < 1 {
			if err == io.EOF {
				break
			}
			cleanup()
			return nil, 0, eris.Wrapf(err, "failed during download of %s", spec.URL)
		}

		hash.Write(buf[:n])
		_, err = arHandle.Write(buf[:n])
		if err != nil {
			cleanup()
			return nil, 0, eris.Wrapf(err, "failed to write download to %s", tmpPath)
		}

		bar.Write(buf[:n])
	}
	bar.Finish()

	digest := hex.EncodeToString(hash.Sum(nil))
	if digest != spec.Sha256 {
		cleanup()
		return nil, 0, eris.Errorf("checksum of %s is %s, expected %s", spec.URL, digest, spec.Sha256)
	}

	size, err := arHandle.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = arHandle.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, 0, eris.Wrapf(err, "failed to rewind %s", tmpPath)
	}

	return arHandle, size, nil
}

func unpack(archive *os.File, size int64, runtimePath string, spec RuntimeSpec) error {
	extract, err := extractorFor(spec.URL)
	if err != nil {
		return err
	}

	bar := getProgressBar(size, "      extract")
	err = extract(archive, bar, runtimePath, spec)
	bar.Finish()
	if err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		// .zip archives don't carry permissions, make sure the interpreter
		// stays executable either way
		pyPath := filepath.Join(runtimePath, filepath.FromSlash(spec.Python))
		fi, err := os.Stat(pyPath)
		if err != nil {
			return eris.Wrapf(err, "the extracted runtime doesn't contain %s", spec.Python)
		}

		err = os.Chmod(pyPath, fi.Mode()|0700)
		if err != nil {
			return eris.Wrapf(err, "failed to mark %s as executable", pyPath)
		}
	}

	return nil
}
