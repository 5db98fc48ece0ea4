package build

import (
	"os"
	"runtime"
	"slices"
	"strings"
)

// DefaultPath is the PATH every stage runs with unless overridden.
const DefaultPath = "/usr/local/bin:/usr/bin:/bin:/usr/local/sbin:/usr/sbin:/sbin"

// EnvOptions feeds CleanEnv.
type EnvOptions struct {
	Path     string
	CFlags   string
	CPPFlags string
	LDFlags  string
	Extra    map[string]string
}

// CleanEnv builds the environment for build tools from scratch instead of
// inheriting the caller's. Only HOME and TMPDIR are carried over.
func CleanEnv(opts EnvOptions) []string {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	vars := map[string]string{
		"PATH":   path,
		"LC_ALL": "C",
		"LANG":   "C",
	}
	for _, key := range []string{"HOME", "TMPDIR"} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}
	if opts.CFlags != "" {
		vars["CFLAGS"] = opts.CFlags
	}
	if opts.CPPFlags != "" {
		vars["CPPFLAGS"] = opts.CPPFlags
	}
	if opts.LDFlags != "" {
		vars["LDFLAGS"] = opts.LDFlags
	}
	for k, v := range opts.Extra {
		vars[k] = v
	}

	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return env
}

// Lookup returns the value of key in an environment list.
func Lookup(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Jobs is the worker count handed to the build tool.
func Jobs() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
