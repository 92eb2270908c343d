package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a file's path for the copy kept by Parquet.Backup.
const BackupSuffix = ".bak"

// backupFile copies path to path+BackupSuffix. A missing path is not an error:
// there is nothing to keep.
func backupFile(path string) error {
	err := copyFile(path, path+BackupSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// copyFile copies src to dest through a temp file, so dest is either the old or
// the complete new copy.
func copyFile(src, dest string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dest)
	out, err := os.CreateTemp(dir, ".pqx-*.bak.tmp")
	if err != nil {
		return err
	}
	tmp := out.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}
