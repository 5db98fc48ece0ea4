// Package render expands package descriptor templates into build tool
// arguments and patches unpacked sources.
package render

import (
	"bytes"
	"fmt"
	"text/template"
)

// Vars are the values a descriptor template can reference.
type Vars struct {
	Name      string
	Version   string
	Tag       string
	Prefix    string
	SourceDir string
	Jobs      int
	Env       map[string]string
}

// Render expands a single template. Unknown keys are an error rather than
// an empty string.
func Render(text string, vars Vars) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", text, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing template %q: %w", text, err)
	}
	return buf.String(), nil
}

// RenderArgs expands each element of an argv.
func RenderArgs(args []string, vars Vars) ([]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		s, err := Render(a, vars)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// RenderEnv expands the values of an environment map.
func RenderEnv(env map[string]string, vars Vars) (map[string]string, error) {
	out := make(map[string]string, len(env))
	for k, v := range env {
		s, err := Render(v, vars)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

// MergeEnv merges global variables with per-package ones. Per-package
// values win.
func MergeEnv(global, perPackage map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(perPackage))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range perPackage {
		merged[k] = v
	}
	return merged
}
