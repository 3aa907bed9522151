package convert

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/artiom-rotari/igi-tools/qsc"
)

// EncodeScriptName is the driver script fed back to the game's own
// converter tool to recompile every decompiled script.
const EncodeScriptName = "encode-all-qvm.qsc"

// writeDriverScripts emits the recompile driver under the scripts
// directory, one CompileScript call per decompiled script.
func (c *Converter) writeDriverScripts(results []Result) error {
	var scripts []string
	for _, r := range results {
		if r.Format != "qvm" || r.Err != nil {
			continue
		}
		for _, out := range r.Outputs {
			if rel, err := filepath.Rel(c.Config.WorkDirPath(), out); err == nil {
				scripts = append(scripts, filepath.ToSlash(rel))
			}
		}
	}
	if len(scripts) == 0 {
		return nil
	}
	sort.Strings(scripts)

	dst := filepath.Join(c.Config.ScriptsDir(), EncodeScriptName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(DriverScript("CompileScript", scripts)), 0o644); err != nil {
		return err
	}
	log.Infof("driver script saved: %s", dst)
	return nil
}

// DriverScript renders a script that applies one tool function to each
// of the given paths.
func DriverScript(function string, paths []string) string {
	block := &qsc.Block{}
	for _, p := range paths {
		block.Stmts = append(block.Stmts, &qsc.ExprStmt{
			X: &qsc.Call{Func: function, Args: []qsc.Expr{&qsc.StrLit{Value: escape(p)}}},
		})
	}
	return qsc.Render(block)
}

// escape prepares raw text for a string literal node, which stores its
// value pre-escaped.
func escape(s string) string {
	return strings.NewReplacer("\n", `\n`, `"`, `\"`).Replace(s)
}
