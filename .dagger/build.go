package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/reckon/internal/dagger"
)

// Build and return a directory of reckon binaries, one per platform.
func (r *Reckon) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// go-sqlite3 needs cgo, so only the native platform pairs are built.
	platforms := []struct{ goos, goarch string }{
		{"linux", "amd64"},
		{"linux", "arm64"},
	}

	outputs := dag.Directory()

	for _, p := range platforms {
		path := fmt.Sprintf("%s/%s/", p.goos, p.goarch)

		build := r.goContainer().
			WithEnvVariable("GOOS", p.goos).
			WithEnvVariable("GOARCH", p.goarch).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/reckon"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (r *Reckon) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/reckon/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/reckon/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/reckon/pkg/utils.Buildtime=%s'", buildtime),
	}

	return r.Build(ctx, strings.Join(ldflags, " "))
}
