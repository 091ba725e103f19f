// Package migrations exposes the embedded connector schema migrations and
// a registration helper for persistence clients.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	connectors "github.com/twjackysu/go-connectors"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const defaultSourceLabel = "go-connectors"

// dialectSubdirs maps each shipped dialect to its directory relative to
// the migration base. Postgres files sit at the base itself.
var dialectSubdirs = []struct {
	dialect string
	subdir  string
}{
	{DialectPostgres, "."},
	{DialectSQLite, "sqlite"},
}

// FilesystemSpec is one dialect's migration filesystem and where it was
// found inside the source tree.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration captures what Register handed to the persistence client.
type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc receives one dialect's migration filesystem, typically a
// persistence client's RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithDialectSourceLabel overrides the label the migrations are filed
// under. Blank input keeps the default.
func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(targets); len(normalized) > 0 {
			r.ValidationTargets = normalized
		}
	}
}

// Filesystems resolves the per-dialect migration filesystems from the
// embedded tree, or from an explicit source when one is given.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := connectors.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := locateBase(root)
	if err != nil {
		return nil, err
	}

	specs := make([]FilesystemSpec, 0, len(dialectSubdirs))
	for _, entry := range dialectSubdirs {
		spec, specErr := dialectSpec(base, basePath, entry.dialect, entry.subdir)
		if specErr != nil {
			return nil, specErr
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Register feeds the per-dialect migration filesystems into registerFn.
// By default both shipped dialects are registered; WithValidationTargets
// narrows the set.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       defaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	specs, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = specs

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if len(reg.ValidationTargets) == 0 {
		return reg, fmt.Errorf("migrations: validation targets are required")
	}

	wanted := make(map[string]bool, len(reg.ValidationTargets))
	for _, dialect := range reg.ValidationTargets {
		wanted[dialect] = true
	}
	for _, spec := range reg.Filesystems {
		if !wanted[spec.Dialect] {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

// locateBase finds the directory holding the postgres migration files:
// the embedded data/sql/migrations tree, or the source root itself when
// the caller hands a flat filesystem of .sql files.
func locateBase(root fs.FS) (fs.FS, string, error) {
	const embeddedPath = "data/sql/migrations"
	if info, err := fs.Stat(root, embeddedPath); err == nil && info.IsDir() {
		sub, subErr := fs.Sub(root, embeddedPath)
		if subErr != nil {
			return nil, "", fmt.Errorf("migrations: resolve embedded tree: %w", subErr)
		}
		return sub, embeddedPath, nil
	}
	if hasSQLFiles(root) {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: no migration files found at %s or the filesystem root", embeddedPath)
}

func hasSQLFiles(fsys fs.FS) bool {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			return true
		}
	}
	return false
}

func dialectSpec(base fs.FS, basePath, dialect, subdir string) (FilesystemSpec, error) {
	fsys := base
	if subdir != "." {
		sub, err := fs.Sub(base, subdir)
		if err != nil {
			return FilesystemSpec{}, fmt.Errorf("migrations: resolve %s filesystem: %w", dialect, err)
		}
		fsys = sub
	}

	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return FilesystemSpec{}, fmt.Errorf("migrations: glob %s: %w", dialect, err)
	}
	if len(ups) == 0 {
		return FilesystemSpec{}, fmt.Errorf("migrations: %s filesystem has no *.up.sql files", dialect)
	}

	return FilesystemSpec{
		Dialect: dialect,
		Path:    path.Join(basePath, subdir),
		FS:      fsys,
	}, nil
}

func normalizeDialects(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.TrimSpace(strings.ToLower(value))
		if dialect == "" || seen[dialect] {
			continue
		}
		seen[dialect] = true
		out = append(out, dialect)
	}
	return out
}
