// Package convert drives batch conversion of game files into editable
// formats: scripts to source text, sounds to RIFF/WAVE, archives to loose
// files, textures to TGA images. Converted trees mirror the game
// directory layout under the configured work directory.
package convert

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/artiom-rotari/igi-tools/catalog"
	"github.com/artiom-rotari/igi-tools/config"
	"github.com/artiom-rotari/igi-tools/qsc"
	"github.com/artiom-rotari/igi-tools/qvm"
	"github.com/artiom-rotari/igi-tools/res"
	"github.com/artiom-rotari/igi-tools/tex"
	"github.com/artiom-rotari/igi-tools/wav"
)

var log = commonlog.GetLogger("igi.convert")

// Converter batch-converts game files under the configured directories.
type Converter struct {
	Config  *config.Config
	Catalog *catalog.Catalog // optional scan database

	Workers int  // worker goroutines for All, minimum 1
	Force   bool // convert even when outputs already exist
	PNG     bool // also write PNG previews for textures
}

// Result reports one converted source file.
type Result struct {
	Source  string
	Format  string
	Outputs []string
	Skipped bool
	Err     error

	summary *catalog.ProgramSummary
}

// formatFor maps a source extension to its format name, empty for files
// the converter does not handle.
func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qvm":
		return "qvm"
	case ".wav":
		return "wav"
	case ".res":
		return "res"
	case ".tex":
		return "tex"
	}
	return ""
}

// File converts a single game file, choosing the conversion by extension.
func (c *Converter) File(path string) (*Result, error) {
	format := formatFor(path)
	if format == "" {
		return nil, fmt.Errorf("convert: unsupported file type %q", filepath.Ext(path))
	}

	r := c.convert(path, format)
	return r, r.Err
}

// All walks the game directory, converts every supported file on a pool
// of workers and writes the encode-all driver scripts. Failures are
// reported per file, not fatally.
func (c *Converter) All() ([]Result, error) {
	gameDir := c.Config.GameDirPath()

	var paths []string
	err := filepath.WalkDir(gameDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && formatFor(path) != "" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("convert: walking %s: %w", gameDir, err)
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	out := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				out <- *c.convert(path, formatFor(path))
			}
		}()
	}
	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	var results []Result
	for r := range out {
		results = append(results, r)
	}

	if err := c.writeDriverScripts(results); err != nil {
		return results, err
	}
	return results, nil
}

// Scan walks the game directory and records every supported file in the
// catalog without writing converted output.
func (c *Converter) Scan() ([]Result, error) {
	gameDir := c.Config.GameDirPath()

	var results []Result
	err := filepath.WalkDir(gameDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		format := formatFor(path)
		if d.IsDir() || format == "" {
			return nil
		}

		r := &Result{Source: path, Format: format}
		r.summary, r.Err = c.probe(path, format)
		c.record(r)
		if r.Err != nil {
			log.Errorf("failed %s: %s", path, r.Err)
		} else {
			log.Debugf("scanned %s", path)
		}
		results = append(results, *r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("convert: walking %s: %w", gameDir, err)
	}
	return results, nil
}

// probe parses a file just far enough to validate it, returning a program
// summary for scripts.
func (c *Converter) probe(path, format string) (*catalog.ProgramSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case "qvm":
		prog, err := qvm.Load(data)
		if err != nil {
			return nil, err
		}
		block, err := qvm.Decompile(prog)
		if err != nil {
			return nil, err
		}
		return &catalog.ProgramSummary{
			Revision:     int(prog.Revision),
			Variables:    len(prog.Variables),
			Strings:      len(prog.Strings),
			Instructions: len(prog.Instructions),
			Statements:   len(block.Stmts),
		}, nil
	case "wav":
		_, err = wav.Parse(data)
	case "res":
		_, err = res.Parse(data)
	case "tex":
		_, err = tex.Parse(data)
	}
	return nil, err
}

func (c *Converter) convert(path, format string) *Result {
	r := &Result{Source: path, Format: format}

	switch format {
	case "qvm":
		c.convertQVM(r)
	case "wav":
		c.convertWAV(r)
	case "res":
		c.convertRES(r)
	case "tex":
		c.convertTEX(r)
	}

	c.record(r)
	switch {
	case r.Err != nil:
		log.Errorf("failed %s: %s", path, r.Err)
	case r.Skipped:
		log.Debugf("skipped %s", path)
	default:
		log.Infof("converted %s", path)
	}
	return r
}

func (c *Converter) record(r *Result) {
	if c.Catalog == nil || r.Skipped {
		return
	}
	e := catalog.Entry{Path: c.rel(r.Source), Format: r.Format, Status: catalog.StatusOK}
	if fi, err := os.Stat(r.Source); err == nil {
		e.Size = fi.Size()
	}
	if r.Err != nil {
		e.Status = catalog.StatusFailed
		e.Error = r.Err.Error()
	}

	var err error
	if r.summary != nil && r.Err == nil {
		err = c.Catalog.RecordProgram(e, r.summary)
	} else {
		err = c.Catalog.Record(e)
	}
	if err != nil {
		log.Errorf("catalog: %s", err)
	}
}

func (c *Converter) convertQVM(r *Result) {
	dst := c.decodedPath(r.Source, ".qsc")
	if c.skip(r, dst) {
		return
	}

	data, err := os.ReadFile(r.Source)
	if err != nil {
		r.Err = err
		return
	}
	prog, err := qvm.Load(data)
	if err != nil {
		r.Err = err
		return
	}
	block, err := qvm.Decompile(prog)
	if err != nil {
		r.Err = err
		return
	}

	r.Err = c.writeFile(r, dst, []byte(qsc.Render(block)))
	if r.Err == nil {
		r.summary = &catalog.ProgramSummary{
			Revision:     int(prog.Revision),
			Variables:    len(prog.Variables),
			Strings:      len(prog.Strings),
			Instructions: len(prog.Instructions),
			Statements:   len(block.Stmts),
		}
	}
}

func (c *Converter) convertWAV(r *Result) {
	dst := c.decodedPath(r.Source, ".wav")
	if c.skip(r, dst) {
		return
	}

	data, err := os.ReadFile(r.Source)
	if err != nil {
		r.Err = err
		return
	}
	sound, err := wav.Parse(data)
	if err != nil {
		r.Err = err
		return
	}
	r.Err = c.writeFile(r, dst, sound.EncodeRIFF())
}

// convertRES extracts embedded files under the extracted directory and
// dumps string tables as JSON next to the decoded tree.
func (c *Converter) convertRES(r *Result) {
	data, err := os.ReadFile(r.Source)
	if err != nil {
		r.Err = err
		return
	}
	archive, err := res.Parse(data)
	if err != nil {
		r.Err = err
		return
	}

	if archive.IsStringTable() {
		dst := c.decodedPath(r.Source, ".json")
		if c.skip(r, dst) {
			return
		}
		table := make(map[string]string)
		for _, e := range archive.Strings() {
			table[e.Name] = e.Text
		}
		out, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			r.Err = err
			return
		}
		r.Err = c.writeFile(r, dst, append(out, '\n'))
		return
	}

	base := filepath.Join(c.Config.ExtractedDir(), c.rel(r.Source))
	for _, e := range archive.Files() {
		dst := filepath.Join(base, filepath.FromSlash(e.Name))
		if !c.Force {
			if _, err := os.Stat(dst); err == nil {
				continue
			}
		}
		if err := c.writeFile(r, dst, e.Body); err != nil {
			r.Err = err
			return
		}
	}
	if len(r.Outputs) == 0 {
		r.Skipped = true
	}
}

func (c *Converter) convertTEX(r *Result) {
	data, err := os.ReadFile(r.Source)
	if err != nil {
		r.Err = err
		return
	}
	t, err := tex.Parse(data)
	if err != nil {
		r.Err = err
		return
	}

	for i := range t.Bitmaps {
		bm := &t.Bitmaps[i]
		dst := c.decodedPath(r.Source, fmt.Sprintf(".%d.tga", i))
		if !c.Force {
			if _, err := os.Stat(dst); err == nil {
				continue
			}
		}

		tga, err := bm.EncodeTGA()
		if err != nil {
			r.Err = err
			return
		}
		if err := c.writeFile(r, dst, tga); err != nil {
			r.Err = err
			return
		}

		if c.PNG {
			if err := c.writePNG(r, bm, c.decodedPath(r.Source, fmt.Sprintf(".%d.png", i))); err != nil {
				r.Err = err
				return
			}
		}
	}
	if len(r.Outputs) == 0 {
		r.Skipped = true
	}
}

func (c *Converter) writePNG(r *Result, bm *tex.Bitmap, dst string) error {
	img, err := bm.Image()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.Outputs = append(r.Outputs, dst)
	return nil
}

// skip marks the result skipped when the destination already exists and
// conversion is not forced.
func (c *Converter) skip(r *Result, dst string) bool {
	if c.Force {
		return false
	}
	if _, err := os.Stat(dst); err == nil {
		r.Skipped = true
		return true
	}
	return false
}

func (c *Converter) writeFile(r *Result, dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	r.Outputs = append(r.Outputs, dst)
	return nil
}

// decodedPath maps a game file to its converted location: the decoded
// directory, the source's path relative to the game directory, the new
// extension.
func (c *Converter) decodedPath(src, ext string) string {
	rel := c.rel(src)
	return filepath.Join(c.Config.DecodedDir(), strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
}

// rel returns the source path relative to the game directory, falling
// back to the bare file name for files outside it.
func (c *Converter) rel(src string) string {
	rel, err := filepath.Rel(c.Config.GameDirPath(), src)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(src)
	}
	return rel
}
