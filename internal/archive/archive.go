// Package archive stages input batches for the engine: ZIP extraction with
// legacy filename repair, and enumeration of source documents per origin
// scope.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// ExtractZip unpacks a ZIP archive into destDir, repairing mojibake in entry
// names: archives produced by Windows tools store names as GBK bytes without
// the UTF-8 flag. macOS resource-fork entries are skipped.
func ExtractZip(zipPath, destDir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", filepath.Base(zipPath), err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		name := repairName(f)
		if strings.Contains(name, "__MACOSX") || strings.Contains(name, ".DS_Store") {
			continue
		}

		target, err := securePath(destDir, name)
		if err != nil {
			slog.Warn("skipping archive entry", "entry", name, "error", err)
			continue
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	return nil
}

// repairName decodes a legacy (non-UTF-8) entry name as GBK. Names that fail
// to decode cleanly are kept as-is.
func repairName(f *zip.File) string {
	if !f.NonUTF8 {
		return f.Name
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().String(f.Name)
	if err != nil || !utf8.ValidString(decoded) {
		return f.Name
	}
	return decoded
}

// securePath joins the entry name under destDir, rejecting traversal.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	_, err = io.Copy(dst, src)
	return err
}

// CollectSources stages each CLI input as one origin scope under workDir and
// returns the flat document list the engine consumes. A ZIP argument is
// extracted into its scope directory; a directory argument is walked in
// place; a loose PDF/XML is taken as-is. Matching never crosses scopes.
func CollectSources(inputs []string, workDir string) ([]model.SourceFile, error) {
	var sources []model.SourceFile
	for i, input := range inputs {
		scope := fmt.Sprintf("scope_%d", i)
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat input %s: %w", input, err)
		}

		switch {
		case info.IsDir():
			files, err := walkDocuments(input, scope)
			if err != nil {
				return nil, err
			}
			sources = append(sources, files...)
		case strings.EqualFold(filepath.Ext(input), ".zip"):
			scopeDir := filepath.Join(workDir, scope)
			if err := os.MkdirAll(scopeDir, 0o750); err != nil {
				return nil, err
			}
			if err := ExtractZip(input, scopeDir); err != nil {
				return nil, err
			}
			files, err := walkDocuments(scopeDir, scope)
			if err != nil {
				return nil, err
			}
			sources = append(sources, files...)
		case isDocument(input):
			sources = append(sources, model.SourceFile{Path: input, Scope: scope})
		default:
			slog.Warn("ignoring unsupported input", "path", input)
		}
	}
	return sources, nil
}

func walkDocuments(root, scope string) ([]model.SourceFile, error) {
	var out []model.SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isDocument(path) {
			out = append(out, model.SourceFile{Path: path, Scope: scope})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".xml":
		return true
	}
	return false
}
