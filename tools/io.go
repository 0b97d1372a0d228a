package tools

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/golang/glog"
)

func GetRootFolder() string {
	workdirFromEnv := os.Getenv("USGS_TERRAIN_WORKDIR")
	if workdirFromEnv != "" {
		return workdirFromEnv
	} else if strings.HasSuffix(os.Args[0], ".test") || strings.HasSuffix(os.Args[0], ".test.exe") {
		_, b, _, _ := runtime.Caller(0)
		return filepath.Dir(filepath.Dir(b))
	} else {
		ex, err := os.Executable()
		if err != nil {
			glog.Fatal("cannot retrieve executable directory", err)
		}
		return filepath.Dir(ex)
	}
}

// ResolvePath returns path unchanged when it is absolute or exists relative to the
// working directory, otherwise the same path under the root folder if it exists there.
func ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}

	candidate := filepath.Join(GetRootFolder(), path)
	if _, err := os.Stat(candidate); err == nil {
		glog.V(1).Infof("resolved %s to %s", path, candidate)
		return candidate
	}
	return path
}

func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		err := os.MkdirAll(directory, 0777)
		if err != nil {
			return err
		}
	}
	return nil
}

// Writes data to a temporary file next to path and renames it over path, so
// readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := CreateDirectoryIfDoesNotExist(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}
