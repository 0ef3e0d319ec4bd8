// Package batch converts every Ruby file under a directory with a bounded
// worker pool.
package batch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/src-d/enry/v2"
)

// rubyLanguage is the linguist name for Ruby sources.
const rubyLanguage = "Ruby"

// sniffSize bounds how much of an extensionless file is read to look for
// a shebang.
const sniffSize = 512

// File is one discovered source file.
type File struct {
	Path string
	Rel  string
	Size int64
}

// Skip records a file left out of a run.
type Skip struct {
	Rel    string
	Reason string
}

// Discover finds Ruby sources under root. root may also be a single file,
// which is taken as is. Vendored, hidden and oversized files are skipped;
// maxSize zero means no limit.
func Discover(root string, maxSize uint64) ([]File, []Skip, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		return []File{{Path: root, Rel: filepath.Base(root), Size: info.Size()}}, nil, nil
	}

	var (
		files   []File
		skipped []Skip
	)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if entry.IsDir() {
			if rel != "." && (enry.IsDotFile(rel) || enry.IsVendor(rel+"/")) {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() || enry.IsDotFile(rel) {
			return nil
		}

		ruby, detectErr := isRuby(path)
		if detectErr != nil {
			return detectErr
		}

		if !ruby {
			return nil
		}

		fileInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		if maxSize > 0 && uint64(fileInfo.Size()) > maxSize { //nolint:gosec // sizes are non-negative.
			skipped = append(skipped, Skip{Rel: rel, Reason: "too large"})

			return nil
		}

		files = append(files, File{Path: path, Rel: rel, Size: fileInfo.Size()})

		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	slices.SortFunc(files, func(left, right File) int { return strings.Compare(left.Rel, right.Rel) })

	return files, skipped, nil
}

// isRuby detects Ruby by file name first and by shebang for files the name
// does not settle.
func isRuby(path string) (bool, error) {
	base := filepath.Base(path)

	if lang, safe := enry.GetLanguageByFilename(base); safe || lang != "" {
		return lang == rubyLanguage, nil
	}

	if langs := enry.GetLanguagesByExtension(base, nil, nil); len(langs) > 0 {
		return slices.Contains(langs, rubyLanguage), nil
	}

	head, err := readHead(path)
	if err != nil {
		return false, err
	}

	lang, _ := enry.GetLanguageByShebang(head)

	return lang == rubyLanguage, nil
}

func readHead(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, sniffSize)

	read, err := file.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return head[:read], nil
}
