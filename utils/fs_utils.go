package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CreateFile creates, or truncates, the file with the given name inside directory, creating the directory first if
// needed. An empty directory refers to the working directory.
func CreateFile(directory string, fileName string) (*os.File, error) {
	filePath := fileName
	if directory != "" {
		if err := MakeDirectory(directory); err != nil {
			return nil, err
		}
		filePath = filepath.Join(directory, fileName)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// MakeDirectory creates a directory and any missing parents. It is a no-op if the directory already exists, and an
// error if a file occupies the path.
func MakeDirectory(directory string) error {
	info, err := os.Stat(directory)
	if os.IsNotExist(err) {
		return errors.WithStack(os.MkdirAll(directory, 0755))
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if !info.IsDir() {
		return errors.Errorf("could not create directory '%s' because a file exists at that path", directory)
	}
	return nil
}

// CopyFile copies a file from a source path to a target path, creating the target's parent directories. File
// permissions are retained.
func CopyFile(sourcePath string, targetPath string) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	if sourceInfo.IsDir() {
		return errors.Errorf("could not copy file from '%s' to '%s' because the source path refers to a directory", sourcePath, targetPath)
	}

	if err = MakeDirectory(filepath.Dir(targetPath)); err != nil {
		return err
	}

	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sourceFile.Close()

	targetFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, sourceInfo.Mode())
	if err != nil {
		return errors.WithStack(err)
	}
	defer targetFile.Close()

	if _, err = io.Copy(targetFile, sourceFile); err != nil {
		return errors.Wrapf(err, "could not copy file from '%s' to '%s'", sourcePath, targetPath)
	}
	return nil
}

// CopyDirectory copies the files of a directory to a target path. Subdirectories are only copied if recursively is
// set.
func CopyDirectory(sourcePath string, targetPath string, recursively bool) error {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	if !sourceInfo.IsDir() {
		return errors.Errorf("could not copy directory from '%s' to '%s' because the source path does not refer to a directory", sourcePath, targetPath)
	}

	if err = os.MkdirAll(targetPath, sourceInfo.Mode()); err != nil {
		return errors.WithStack(err)
	}

	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, entry := range entries {
		entrySourcePath := filepath.Join(sourcePath, entry.Name())
		entryTargetPath := filepath.Join(targetPath, entry.Name())

		if !entry.IsDir() {
			err = CopyFile(entrySourcePath, entryTargetPath)
		} else if recursively {
			err = CopyDirectory(entrySourcePath, entryTargetPath, recursively)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
