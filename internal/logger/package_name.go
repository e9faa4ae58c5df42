package logger

import (
	"runtime"
	"strings"
)

// PackageNameResolver finds the name of the calling package relative to BasePackage.
type PackageNameResolver struct {
	BasePackage string
	Depth       int
}

func (r *PackageNameResolver) PackageName() string {
	pc, _, _, _ := runtime.Caller(r.depth())
	// e.g. github.com/codypharm/Opensafari/internal/chain.New
	return r.packageOf(runtime.FuncForPC(pc).Name())
}

func (r *PackageNameResolver) packageOf(funcName string) string {
	parts := strings.SplitN(funcName, r.BasePackage, 2)
	if len(parts) < 2 {
		return strings.Trim(parts[0], "/")
	}
	rel := strings.SplitN(parts[1], ".", 2)[0]
	return strings.TrimPrefix(strings.Trim(rel, "/"), "internal/")
}

func (r *PackageNameResolver) depth() int {
	// 2 because it's used from inside logging code, we want the caller of that
	if r.Depth == 0 {
		return 2
	}
	return r.Depth
}
