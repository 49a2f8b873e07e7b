package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/tdewolff/minify/v2"
	mcss "github.com/tdewolff/minify/v2/css"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"plumber/archive"
	"plumber/css"
	"plumber/state"
	"plumber/transform"
)

const cssMediaType = "text/css"

// processor carries everything needed to handle single stylesheet. It is
// created once per run, all stylesheets share the same transformer.
type processor struct {
	env *state.LocalEnv
	tr  *transform.Transformer
	min *minify.M
	log *zap.Logger

	processed, failed int
}

func newProcessor(env *state.LocalEnv, log *zap.Logger) *processor {
	p := &processor{
		env: env,
		tr:  transform.New(env.TransformOptions(), log),
		log: log,
	}
	if env.MinifyOutput() {
		p.min = minify.New()
		p.min.AddFunc(cssMediaType, mcss.Minify)
	}
	return p
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite, env.Minify = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("minify")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	p := newProcessor(env, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)),
			zap.Int("stylesheets", p.processed), zap.Int("failed", p.failed))
	}(time.Now())

	return p.process(ctx, src, dst)
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. Source path may continue inside archive.
func (p *processor) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := p.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := p.processArchive(ctx, head, tail, "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		ok, enc, err := isStylesheetFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if ok && len(tail) == 0 {
			p.processFile(ctx, head, filepath.Base(head), dst, enc)
			break
		}
		return fmt.Errorf("input was not recognized as CSS stylesheet (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir finds stylesheets and archives in directory tree and processes
// them in natural order of their paths.
func (p *processor) processDir(ctx context.Context, dir, dst string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			if path == dir {
				return err
			}
			p.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.SortFunc(paths, naturalOrder)

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			p.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := p.processArchive(ctx, path, "", filepath.Dir(rel), dst); err != nil {
				p.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		ok, enc, err := isStylesheetFile(path)
		if err != nil {
			p.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if !ok {
			p.log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}
		count++
		p.processFile(ctx, path, rel, dst, enc)
	}
	if count == 0 {
		p.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

func naturalOrder(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. "pathOut" is archive directory relative to
// processed root.
func (p *processor) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) error {
	count := 0
	err := archive.Walk(path, pathIn, p.env.CodePage, func(arc string, e archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, enc, err := isStylesheetInArchive(e.File, e.Name)
		if err != nil {
			p.log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", e.Name), zap.Error(err))
			return nil
		}
		if !ok {
			p.log.Debug("Skipping file, not recognized as stylesheet", zap.String("archive", arc), zap.String("file", e.Name))
			return nil
		}
		count++

		r, err := e.File.Open()
		if err != nil {
			p.failed++
			p.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", e.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		src := filepath.Join(pathOut, filepath.FromSlash(e.Name))
		if err := p.processStylesheet(ctx, selectReader(r, enc), src, dst); err != nil {
			p.failed++
			p.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", e.Name), zap.Error(err))
		}
		return nil
	})
	if err == nil && count == 0 {
		p.log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// processFile opens stylesheet and processes it, errors are logged.
func (p *processor) processFile(ctx context.Context, path, src, dst string, enc srcEncoding) {
	file, err := os.Open(path)
	if err != nil {
		p.failed++
		p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		return
	}
	defer file.Close()

	if err := p.processStylesheet(ctx, selectReader(file, enc), src, dst); err != nil {
		p.failed++
		p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
	}
}

// processStylesheet processes single stylesheet. "src" is part of the source
// path (always including file name) relative to the original path. When
// actual file was specified it will be just base file name without a path.
// When looking inside archive or directory it will be relative path inside
// archive or directory (including base file name). "dst" is the destination
// directory where the resulting file should be written.
//
// Occurrences which could not be transformed are reported but do not prevent
// output from being written.
func (p *processor) processStylesheet(ctx context.Context, r io.Reader, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := p.env
	p.processed++

	var outputName string
	p.log.Info("Stylesheet processing starting", zap.String("from", src))
	defer func(start time.Time) {
		p.log.Info("Stylesheet processing completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
	}

	reportName := filepath.ToSlash(src)
	env.Rpt.StoreData("sources/"+reportName, data)

	sheet := css.NewParser(p.log).Parse(data, src)
	for _, w := range sheet.Warnings {
		p.log.Warn("Stylesheet problem", zap.String("file", src), zap.String("warning", w))
	}
	env.Rpt.StoreData("trees/"+reportName+".txt", []byte(sheet.Dump()))

	res, err := p.tr.Apply(sheet)
	for _, w := range res.Warnings {
		p.log.Warn("Occurrence problem", zap.String("file", src), zap.Stringer("kind", w.Kind), zap.String("warning", w.String()))
	}
	for _, e := range multierr.Errors(err) {
		p.log.Warn("Occurrence left untransformed", zap.String("file", src), zap.Error(e))
	}
	p.log.Debug("Stylesheet transformed", zap.String("file", src), zap.Int("replaced", res.Replaced), zap.Int("failed", res.Failed))

	out := []byte(sheet.String())
	if p.min != nil {
		if out, err = p.min.Bytes(cssMediaType, out); err != nil {
			return fmt.Errorf("unable to minify stylesheet (%s): %w", src, err)
		}
	}

	outputName = buildOutputPath(src, dst, env)
	if err := prepareOutput(outputName, env.Overwrite, p.log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if err := env.Rpt.StoreCopy("results/"+reportName, outputName); err != nil {
		p.log.Debug("Unable to store result in report", zap.String("file", outputName), zap.Error(err))
	}
	return nil
}

// prepareOutput makes sure output file could be written.
func prepareOutput(outputName string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		return os.Remove(outputName)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
