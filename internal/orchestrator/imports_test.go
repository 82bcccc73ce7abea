package orchestrator

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "voicebridge"

// Packages behind these paths link C libraries. The pipeline and its
// front ends must build and test with fakes alone.
var nativeImports = []string{
	"voicebridge/pkg/stt",
	"voicebridge/pkg/audioconv",
	"voicebridge/internal/audio",
	"voicebridge/internal/notify",
	"github.com/ggerganov/whisper.cpp",
	"github.com/gordonklaus/portaudio",
	"github.com/pekim/opus",
	"github.com/faiface/beep",
}

func packageImports(t *testing.T, dir string) []string {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatal(err)
	}

	var out []string
	fset := token.NewFileSet()
	for _, f := range files {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		af, err := parser.ParseFile(fset, f, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", f, err)
		}
		for _, imp := range af.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			out = append(out, path)
		}
	}
	return out
}

func TestCorePackagesStayFreeOfNativeCode(t *testing.T) {
	root := filepath.Join("..", "..")

	for _, pkg := range []string{
		"internal/orchestrator",
		"internal/httpapi",
		"internal/bus",
		"internal/asr",
		"internal/llm",
		"internal/tts",
		"internal/understanding",
		"internal/conversation",
		"internal/provider",
		"internal/core",
		"internal/logging",
	} {
		seen := map[string]bool{}
		queue := []string{modulePath + "/" + pkg}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if seen[cur] {
				continue
			}
			seen[cur] = true

			dir := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(cur, modulePath+"/")))
			for _, imp := range packageImports(t, dir) {
				for _, bad := range nativeImports {
					if imp == bad || strings.HasPrefix(imp, bad+"/") {
						t.Errorf("%s: %s imports %s", pkg, cur, imp)
					}
				}
				if strings.HasPrefix(imp, modulePath+"/") {
					queue = append(queue, imp)
				}
			}
		}
	}
}
