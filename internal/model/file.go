package model

import (
	"errors"
	"fmt"
	"os"
)

// StatLocalFile 校验本地文件存在、是普通文件且非空，返回其大小
func StatLocalFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, &InvalidFileError{Path: path, Reason: "file does not exist"}
		}
		return 0, &InvalidFileError{Path: path, Reason: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return 0, &InvalidFileError{Path: path, Reason: "not a regular file"}
	}
	if info.Size() == 0 {
		return 0, &InvalidFileError{Path: path, Reason: "file is empty"}
	}
	return info.Size(), nil
}

// CheckMaxSize 超出上限时返回 InvalidFileError
func CheckMaxSize(path string, size, limit int64) error {
	if size > limit {
		return &InvalidFileError{
			Path:   path,
			Reason: fmt.Sprintf("size %d exceeds limit %d", size, limit),
		}
	}
	return nil
}
