package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"plumber/config"
	"plumber/state"
)

// buildOutputPath returns constructed output file path/name based on various
// input parameters. "src" is source path relative to processed root (always
// including file name). It uses either default naming scheme or user-defined
// template and takes into account whether to preserve source directory
// structure on the output. It cleans up path and if requested transliterates
// it.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := determineOutputDir(src, dst, env)
	defaultFile := buildDefaultFileName(src, env)

	if env.Cfg.Output.NameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(src, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, filepath.Ext(src), env)
}

func determineOutputDir(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return dst
	}
	return filepath.Join(dst, filepath.Dir(src))
}

func buildDefaultFileName(src string, env *state.LocalEnv) string {
	ext := filepath.Ext(src)
	return cleanPathSegment(strings.TrimSuffix(filepath.Base(src), ext), env) + ext
}

func expandOutputNameTemplate(src string, env *state.LocalEnv) string {
	name := config.OutputNameTemplateFieldName
	expandedName, err := expandTemplate(name, env.Cfg.Output.NameTemplate, newValues(name, src))
	if err != nil {
		env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(expandedName)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed. Source extension is added
// when expanded file name does not have any.
func assemblePathWithSubdirs(outDir, expandedName, srcExt string, env *state.LocalEnv) string {
	pathSegments := splitPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	last := pathSegments[len(pathSegments)-1]
	ext := filepath.Ext(last)
	if ext == "" {
		ext = srcExt
	}
	fileName := cleanPathSegment(strings.TrimSuffix(last, filepath.Ext(last)), env) + ext

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments[:len(pathSegments)-1] {
		if segment == "." || segment == ".." {
			// expanded name must not leave output directory
			continue
		}
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}
	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Output.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
