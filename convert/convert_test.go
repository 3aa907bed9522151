package convert

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artiom-rotari/igi-tools/catalog"
	"github.com/artiom-rotari/igi-tools/config"
)

// testQVM is a revision-7 program assigning 1 to the variable x.
func testQVM() []byte {
	code := []byte{
		0x13, 0, // push variable 0
		0x09, 1, // push 1
		0x2A, // assign
		0x00, // brk
	}
	vars := []byte("x\x00")

	buf := append([]byte{}, "LOOP"...)
	fields := []uint32{
		8, 7,
		60, 60, 0, uint32(len(vars)), // variables
		62, 62, 0, 0, // strings
		62, uint32(len(code)), // instructions
		0, 0,
	}
	for _, f := range fields {
		buf = binary.LittleEndian.AppendUint32(buf, f)
	}
	buf = append(buf, vars...)
	return append(buf, code...)
}

func testILSF() []byte {
	buf := append([]byte{}, "ILSF"...)
	for _, f := range []uint16{0, 16, 1, 0} {
		buf = binary.LittleEndian.AppendUint16(buf, f)
	}
	buf = binary.LittleEndian.AppendUint32(buf, 22050)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	return append(buf, 0x01, 0x00, 0x02, 0x00)
}

func resChunk(buf []byte, fourcc string, payload []byte) []byte {
	buf = append(buf, fourcc...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = binary.LittleEndian.AppendUint32(buf, 4)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	buf = append(buf, payload...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func testRES(payloadFourCC string, payload []byte) []byte {
	var body []byte
	body = resChunk(body, "NAME", []byte("LOCAL:sub/file.txt\x00"))
	body = resChunk(body, payloadFourCC, payload)

	content := append([]byte("IRES"), body...)
	buf := resChunk(nil, "ILFF", nil)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(content)))
	return append(buf, content...)
}

func testTEX() []byte {
	buf := append([]byte{}, "LOOP"...)
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	for _, f := range []uint16{0, 0, 0, 0, 0, 1, 1, 2} {
		buf = binary.LittleEndian.AppendUint16(buf, f)
	}
	return append(buf, 0xFF, 0xFF)
}

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	root := t.TempDir()
	gameDir := filepath.Join(root, "game")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := &config.Config{
		Game: config.Game{GameDir: gameDir, WorkDir: "work"},
		Dir:  root,
	}
	return &Converter{Config: cfg}
}

func addGameFile(t *testing.T, c *Converter, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(c.Config.GameDirPath(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func TestConvertQVM(t *testing.T) {
	c := newTestConverter(t)
	src := addGameFile(t, c, "ai/test.qvm", testQVM())

	r, err := c.File(src)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if len(r.Outputs) != 1 {
		t.Fatalf("outputs = %v", r.Outputs)
	}

	want := filepath.Join(c.Config.DecodedDir(), "ai", "test.qsc")
	if r.Outputs[0] != want {
		t.Errorf("output path = %q, want %q", r.Outputs[0], want)
	}
	out, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(out) != "x = 1;\n" {
		t.Errorf("decompiled script = %q", out)
	}
}

func TestConvertSkipsExisting(t *testing.T) {
	c := newTestConverter(t)
	src := addGameFile(t, c, "a.qvm", testQVM())

	if _, err := c.File(src); err != nil {
		t.Fatalf("first File failed: %v", err)
	}
	r, err := c.File(src)
	if err != nil {
		t.Fatalf("second File failed: %v", err)
	}
	if !r.Skipped {
		t.Errorf("second conversion not skipped")
	}

	c.Force = true
	r, err = c.File(src)
	if err != nil {
		t.Fatalf("forced File failed: %v", err)
	}
	if r.Skipped {
		t.Errorf("forced conversion skipped")
	}
}

func TestConvertWAV(t *testing.T) {
	c := newTestConverter(t)
	src := addGameFile(t, c, "sounds/shot.wav", testILSF())

	r, err := c.File(src)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	out, err := os.ReadFile(r.Outputs[0])
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("RIFF")) {
		t.Errorf("output is not a RIFF file: %q", out[:4])
	}
}

func TestConvertRESArchive(t *testing.T) {
	c := newTestConverter(t)
	src := addGameFile(t, c, "missions/m1.res", testRES("BODY", []byte("payload")))

	r, err := c.File(src)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	want := filepath.Join(c.Config.ExtractedDir(), "missions", "m1.res", "sub", "file.txt")
	if len(r.Outputs) != 1 || r.Outputs[0] != want {
		t.Fatalf("outputs = %v, want %q", r.Outputs, want)
	}
	out, _ := os.ReadFile(want)
	if string(out) != "payload" {
		t.Errorf("extracted body = %q", out)
	}
}

func TestConvertRESStringTable(t *testing.T) {
	c := newTestConverter(t)
	src := addGameFile(t, c, "text/ui.res", testRES("CSTR", []byte("Hello\x00")))

	r, err := c.File(src)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	out, err := os.ReadFile(r.Outputs[0])
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(out), `"sub/file.txt": "Hello"`) {
		t.Errorf("string table JSON = %s", out)
	}
}

func TestConvertTEX(t *testing.T) {
	c := newTestConverter(t)
	c.PNG = true
	src := addGameFile(t, c, "textures/wall.tex", testTEX())

	r, err := c.File(src)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if len(r.Outputs) != 2 {
		t.Fatalf("outputs = %v, want tga and png", r.Outputs)
	}
	tga, err := os.ReadFile(r.Outputs[0])
	if err != nil {
		t.Fatalf("read tga: %v", err)
	}
	if tga[2] != 2 || tga[16] != 16 {
		t.Errorf("tga header = %v", tga[:18])
	}
	png, err := os.ReadFile(r.Outputs[1])
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("png magic = %v", png[:4])
	}
}

func TestConvertUnsupportedExtension(t *testing.T) {
	c := newTestConverter(t)
	if _, err := c.File("whatever.dat"); err == nil {
		t.Fatalf("unsupported extension accepted")
	}
}

func TestAllConvertsTreeAndWritesDriverScript(t *testing.T) {
	c := newTestConverter(t)
	c.Workers = 4
	addGameFile(t, c, "ai/a.qvm", testQVM())
	addGameFile(t, c, "ai/b.qvm", testQVM())
	addGameFile(t, c, "sounds/s.wav", testILSF())
	addGameFile(t, c, "readme.txt", []byte("not a game file"))

	results, err := c.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("result count = %d, want 3", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s failed: %v", r.Source, r.Err)
		}
	}

	script, err := os.ReadFile(filepath.Join(c.Config.ScriptsDir(), EncodeScriptName))
	if err != nil {
		t.Fatalf("driver script missing: %v", err)
	}
	want := "CompileScript(\"decoded/ai/a.qsc\");\nCompileScript(\"decoded/ai/b.qsc\");\n"
	if string(script) != want {
		t.Errorf("driver script = %q, want %q", script, want)
	}
}

func TestAllRecordsToCatalog(t *testing.T) {
	c := newTestConverter(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog open: %v", err)
	}
	defer cat.Close()
	c.Catalog = cat

	addGameFile(t, c, "ai/a.qvm", testQVM())
	addGameFile(t, c, "bad.tex", []byte("not a texture at all"))

	if _, err := c.All(); err != nil {
		t.Fatalf("All failed: %v", err)
	}

	counts, err := cat.FormatCounts()
	if err != nil {
		t.Fatalf("FormatCounts failed: %v", err)
	}
	if counts["qvm"] != 1 || counts["tex"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	failures, err := cat.Failures()
	if err != nil {
		t.Fatalf("Failures failed: %v", err)
	}
	if len(failures) != 1 || failures[0].Path != "bad.tex" {
		t.Errorf("failures = %+v", failures)
	}

	sum, err := cat.Summary(filepath.Join("ai", "a.qvm"))
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum == nil || sum.Revision != 7 || sum.Variables != 1 || sum.Statements != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestScanRecordsWithoutConverting(t *testing.T) {
	c := newTestConverter(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog open: %v", err)
	}
	defer cat.Close()
	c.Catalog = cat

	addGameFile(t, c, "ai/a.qvm", testQVM())
	addGameFile(t, c, "sounds/s.wav", testILSF())

	results, err := c.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}

	if _, err := os.Stat(c.Config.DecodedDir()); !os.IsNotExist(err) {
		t.Errorf("scan wrote converted output")
	}

	sum, err := cat.Summary(filepath.Join("ai", "a.qvm"))
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum == nil || sum.Statements != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestDriverScriptRendering(t *testing.T) {
	got := DriverScript("CompileScript", []string{"decoded/ai/a.qsc"})
	if got != "CompileScript(\"decoded/ai/a.qsc\");\n" {
		t.Errorf("DriverScript = %q", got)
	}
}
