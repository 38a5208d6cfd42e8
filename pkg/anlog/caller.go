package anlog

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ConstructorName replaces "init" in caller tags.
const ConstructorName = "Constructor"

// captureCaller returns the tag of the function skip frames above its
// caller, as <fileStem>.<function>:<line>, or "" when unavailable.
func captureCaller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok || file == "" {
		return ""
	}
	var fn string
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
	}
	return callerTag(file, fn, line)
}

func callerTag(file, fn string, line int) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return stem + "." + memberName(fn) + ":" + strconv.Itoa(line)
}

// memberName reduces a qualified function name such as
// "github.com/a/b.(*T).Method.func1" to "Method".
func memberName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	parts := strings.Split(fn, ".")
	if len(parts) > 1 {
		parts = parts[1:] // package name
	}
	for len(parts) > 1 && isGenerated(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	name := parts[len(parts)-1]
	if name == "init" {
		return ConstructorName
	}
	if name == "" {
		return "unknown"
	}
	return name
}

// isGenerated matches the closure and init suffixes the compiler adds:
// "func1", "0", "gowrap2".
func isGenerated(part string) bool {
	for _, prefix := range []string{"func", "gowrap", ""} {
		rest, ok := strings.CutPrefix(part, prefix)
		if !ok || rest == "" {
			continue
		}
		if _, err := strconv.Atoi(rest); err == nil {
			return true
		}
	}
	return false
}
