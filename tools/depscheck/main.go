package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "github.com/overfly42/found-gems"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under From from importing anything under To.
type rule struct {
	From string
	To   string
}

// The decision core stays free of process wiring and transports so it can be
// driven by tests and tools alike.
var rules = []rule{
	{From: modulePath + "/internal/grid", To: modulePath + "/internal/"},
	{From: modulePath + "/internal/memory", To: modulePath + "/internal/net"},
	{From: modulePath + "/internal/memory", To: modulePath + "/internal/app"},
	{From: modulePath + "/internal/field", To: modulePath + "/internal/net"},
	{From: modulePath + "/internal/field", To: modulePath + "/internal/app"},
	{From: modulePath + "/internal/signal", To: modulePath + "/internal/net"},
	{From: modulePath + "/internal/targets", To: modulePath + "/internal/net"},
	{From: modulePath + "/internal/agent", To: modulePath + "/internal/net"},
	{From: modulePath + "/internal/agent", To: modulePath + "/internal/app"},
	{From: modulePath + "/internal/agent", To: modulePath + "/logging/sinks"},
	{From: modulePath + "/logging", To: modulePath + "/internal/"},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	pkgs, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	if violations := check(pkgs, rules); len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
}

func check(pkgs []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, r := range rules {
			if !within(pkg.ImportPath, r.From) {
				continue
			}
			for _, imp := range pkg.Imports {
				if strings.HasPrefix(imp, r.To) && !within(imp, r.From) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

// within reports whether path is root or one of its subpackages.
func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}
