// Package abi generates guest-side entry-point shims from an entry-point
// table. A shim decodes the typed arguments an invocation carries, calls
// the contract author's plain Go function, and returns its result through
// the host boundary, so contract code never touches envelopes directly.
package abi

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ledgervm/vm/types"
)

// StubGenerator generates entry-point shims for one contract package.
type StubGenerator struct {
	pkg string
	eps types.EntryPoints
}

var EnableFormatAfterGenerate = true

// NewStubGenerator creates a generator for the given package name and
// entry-point table.
func NewStubGenerator(pkg string, eps types.EntryPoints) *StubGenerator {
	return &StubGenerator{pkg: pkg, eps: eps}
}

// format formats the generated code using gofmt.
func format(code string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "vm-stub-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpFile := filepath.Join(tmpDir, "stubs.go")
	if err := os.WriteFile(tmpFile, []byte(code), 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	cmd := exec.Command("gofmt", "-s", "-w", tmpFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("gofmt failed: %s: %w", string(output), err)
	}

	formatted, err := os.ReadFile(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to read formatted code: %w", err)
	}
	return string(formatted), nil
}

// GenerateStubs generates the shim source for every entry point.
func (g *StubGenerator) GenerateStubs() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("package %s\n\n", g.pkg))
	sb.WriteString("import (\n")
	sb.WriteString("\t\"github.com/ledgervm/vm/runtime\"\n")
	sb.WriteString("\t\"github.com/ledgervm/vm/types\"\n")
	sb.WriteString(")\n\n")

	for _, ep := range g.eps {
		sb.WriteString(g.generateStub(ep))
	}

	return sb.String()
}

// generateStub generates one exported shim. The export name is the wire
// entry-point name; the user function it calls carries the same name in
// lower camel case.
func (g *StubGenerator) generateStub(ep types.EntryPoint) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("//export %s\n", ep.Name))
	sb.WriteString(fmt.Sprintf("func %s() {\n", ExportName(ep.Name)))

	for i, p := range ep.Params {
		v := varName(p.Name)
		sb.WriteString(fmt.Sprintf("\tvar %s %s\n", v, GoType(p.Type)))
		sb.WriteString(fmt.Sprintf("\tfound%d, err%d := runtime.GetArg(%d, &%s)\n", i, i, i, v))
		sb.WriteString(fmt.Sprintf("\truntime.OrRevert(err%d)\n", i))
		sb.WriteString(fmt.Sprintf("\tif !found%d {\n", i))
		sb.WriteString("\t\truntime.OrRevert(types.ErrMissingArgument)\n")
		sb.WriteString("\t}\n")
	}

	call := localName(ep.Name) + "("
	for i, p := range ep.Params {
		if i > 0 {
			call += ", "
		}
		call += varName(p.Name)
	}
	call += ")"

	if ep.Ret.Tag == types.CLTagUnit {
		sb.WriteString("\t" + call + "\n")
		sb.WriteString("\truntime.Ret(types.UnitValue(), nil)\n")
	} else {
		sb.WriteString("\tresult := " + call + "\n")
		sb.WriteString("\truntime.Ret(types.MustCLValue(result), nil)\n")
	}
	sb.WriteString("}\n\n")

	return sb.String()
}

// ExportName maps a wire entry-point name to the exported Go identifier of
// its shim: underscore segments become title case.
func ExportName(name string) string {
	title := cases.Title(language.English)
	parts := strings.Split(name, "_")
	for i, p := range parts {
		parts[i] = title.String(p)
	}
	return strings.Join(parts, "")
}

// localName maps a wire entry-point name to the unexported user function
// the shim calls.
func localName(name string) string {
	exported := ExportName(name)
	return strings.ToLower(exported[:1]) + exported[1:]
}

func varName(name string) string {
	if name == "" {
		return "arg"
	}
	local := localName(name)
	// Dodge collisions with the shim's own identifiers and keywords.
	switch local {
	case "result", "found", "err", "type", "func", "range", "select":
		return local + "Arg"
	}
	return local
}

// GoType maps an envelope type to the Go type the runtime decodes it into.
func GoType(t types.CLType) string {
	switch t.Tag {
	case types.CLTagBool:
		return "bool"
	case types.CLTagI32:
		return "int32"
	case types.CLTagI64:
		return "int64"
	case types.CLTagU8:
		return "uint8"
	case types.CLTagU32:
		return "uint32"
	case types.CLTagU64:
		return "uint64"
	case types.CLTagString:
		return "string"
	case types.CLTagBytes:
		return "[]byte"
	case types.CLTagKey:
		return "types.Key"
	case types.CLTagURef:
		return "types.URef"
	case types.CLTagList:
		if t.Inner != nil {
			switch t.Inner.Tag {
			case types.CLTagKey:
				return "[]types.Key"
			case types.CLTagURef:
				return "[]types.URef"
			}
		}
	case types.CLTagMap:
		if t.Inner != nil && t.Inner2 != nil &&
			t.Inner.Tag == types.CLTagString && t.Inner2.Tag == types.CLTagKey {
			return "types.NamedKeys"
		}
	}
	// Anything without a native decoding stays an envelope and the user
	// function unwraps it itself.
	return "types.CLValue"
}

// GenerateStubFile generates a complete, formatted shim file.
func GenerateStubFile(pkg string, eps types.EntryPoints) (string, error) {
	g := NewStubGenerator(pkg, eps)
	code := g.GenerateStubs()
	if !EnableFormatAfterGenerate {
		return code, nil
	}
	formatted, err := format(code)
	if err != nil {
		return "", fmt.Errorf("failed to format code: %w", err)
	}
	return formatted, nil
}
