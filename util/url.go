// Package util holds small helpers for turning media URLs into file names and titles.
package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromURL is the last path element of u, which must not be empty or made only of dots.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return "", ErrNoFilename
	}
	filename := path.Base(trimmed)
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return "", err
	} else {
		return FilenameFromURL(parsedURL)
	}
}

// SplitExt splits "Clip.MP4" into "Clip" and "mp4".
func SplitExt(filename string) (stem string, ext string) {
	dotExt := path.Ext(filename)
	return strings.TrimSuffix(filename, dotExt), strings.ToLower(strings.TrimPrefix(dotExt, "."))
}

var titleSeparators = strings.NewReplacer("_", " ", ".", " ", "+", " ")

// TitleFromFilename makes a readable title from a file name: the extension is dropped and separators become spaces.
func TitleFromFilename(filename string) string {
	stem, _ := SplitExt(filename)
	return strings.Join(strings.Fields(titleSeparators.Replace(stem)), " ")
}
