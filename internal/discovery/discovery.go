// Package discovery finds the source files an analysis run should read.
package discovery

import (
	"bytes"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/crypto/blake2b"

	"pma/internal/paths"
)

// FileRef is one file selected for analysis.
type FileRef struct {
	AbsPath string    `json:"absPath"`
	RelPath string    `json:"relPath"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Options control which files are selected.
type Options struct {
	// Extensions without the leading dot, compared case-insensitively.
	Extensions []string
	// Exclude holds gitignore-style patterns relative to the root.
	Exclude []string
	// UseGitignore appends the root .gitignore to Exclude.
	UseGitignore bool
	// MaxFileSize skips larger files; 0 means no limit.
	MaxFileSize int64
	// AdditionalPaths are extra directories or files, relative to the root
	// or absolute, scanned with the same filters.
	AdditionalPaths []string
}

// Scanner walks a project tree.
type Scanner struct {
	opts   Options
	logger *slog.Logger
}

// NewScanner creates a scanner with the given filters.
func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	return &Scanner{opts: opts, logger: logger}
}

// Scan returns the selected files under root ordered by relative path.
// Unreadable directories are logged and skipped.
func (s *Scanner) Scan(root string) ([]FileRef, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(s.opts.Extensions))
	for _, e := range s.opts.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	w := &walker{
		root:     absRoot,
		exts:     exts,
		maxSize:  s.opts.MaxFileSize,
		excludes: ignore.CompileIgnoreLines(s.patterns(absRoot)...),
		seen:     make(map[string]bool),
		logger:   s.logger,
	}

	if !info.IsDir() {
		w.root = filepath.Dir(absRoot)
		w.visitFile(absRoot, info)
		return w.files, nil
	}

	w.walk(absRoot)
	for _, extra := range s.opts.AdditionalPaths {
		p := extra
		if !filepath.IsAbs(p) {
			p = filepath.Join(absRoot, p)
		}
		fi, err := os.Stat(p)
		if err != nil {
			s.logger.Warn("Additional path not found", "path", extra)
			continue
		}
		if !paths.IsWithinRoot(p, absRoot) {
			s.logger.Debug("Additional path lies outside the project root", "path", extra)
		}
		if fi.IsDir() {
			w.walk(p)
		} else {
			w.visitFile(p, fi)
		}
	}

	sort.Slice(w.files, func(i, j int) bool {
		return w.files[i].RelPath < w.files[j].RelPath
	})
	return w.files, nil
}

func (s *Scanner) patterns(root string) []string {
	patterns := append([]string(nil), s.opts.Exclude...)
	if !s.opts.UseGitignore {
		return patterns
	}
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return patterns
	}
	return append(patterns, strings.Split(string(data), "\n")...)
}

type walker struct {
	root     string
	exts     map[string]bool
	maxSize  int64
	excludes *ignore.GitIgnore
	seen     map[string]bool
	files    []FileRef
	logger   *slog.Logger
}

func (w *walker) walk(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Skipping unreadable path", "path", path, "error", err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := w.rel(path)
		if d.IsDir() {
			if rel != "." && w.excludes.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		w.visitFile(path, info)
		return nil
	})
	if err != nil {
		w.logger.Warn("Walk aborted", "path", dir, "error", err.Error())
	}
}

func (w *walker) visitFile(path string, info fs.FileInfo) {
	if !info.Mode().IsRegular() || w.seen[path] {
		return
	}
	rel := w.rel(path)
	if w.excludes.MatchesPath(rel) {
		return
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !w.exts[ext] {
		return
	}
	if w.maxSize > 0 && info.Size() > w.maxSize {
		w.logger.Debug("Skipping oversized file", "path", rel, "size", info.Size())
		return
	}

	w.seen[path] = true
	w.files = append(w.files, FileRef{
		AbsPath: path,
		RelPath: rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

func (w *walker) rel(path string) string {
	rel, err := paths.CanonicalizePath(path, w.root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}

// sniffLen matches the prefix git inspects when deciding a file is binary.
const sniffLen = 8000

// IsBinary reports whether content looks binary: a NUL byte near the start.
func IsBinary(content []byte) bool {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// HashContent returns the hex blake2b-256 digest of content.
func HashContent(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
