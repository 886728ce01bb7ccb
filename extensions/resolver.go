package extensions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/log"
	"grol.io/rhai/eval"
	"grol.io/rhai/object"
	"grol.io/rhai/token"
)

// FileResolver loads `import "name"` from BaseDir/name.rhai. Modules are
// compiled and run once then cached, until Clear.
type FileResolver struct {
	BaseDir string
	// Unrestricted lets paths go outside of BaseDir (absolute or with "..").
	Unrestricted bool

	mu      sync.Mutex
	cache   map[string]*eval.Module
	loading map[string]bool
}

func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{
		BaseDir: dir,
		cache:   make(map[string]*eval.Module),
		loading: make(map[string]bool),
	}
}

func sanitizeModuleName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid module name %q", name)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '-', c == '/':
		default:
			return fmt.Errorf("invalid character %q in module name %q", c, name)
		}
	}
	return nil
}

// Path of the file for module name.
func (r *FileResolver) Path(name string) (string, error) {
	if !r.Unrestricted {
		if err := sanitizeModuleName(name); err != nil {
			return "", err
		}
	}
	name = strings.TrimSuffix(name, RhaiFileExtension) + RhaiFileExtension
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(r.BaseDir, name), nil
}

func (r *FileResolver) Resolve(e *eval.Engine, _, path string, pos token.Position) (*eval.Module, error) {
	file, err := r.Path(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if m, ok := r.cache[file]; ok {
		r.mu.Unlock()
		return m, nil
	}
	if r.loading[file] {
		r.mu.Unlock()
		return nil, fmt.Errorf("circular import of %q", path)
	}
	r.loading[file] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.loading, file)
		r.mu.Unlock()
	}()
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eval.ModuleNotFound(path, pos)
	}
	if err != nil {
		return nil, err
	}
	log.LogVf("Loading module %q from %s", path, file)
	tree, err := e.Compile(string(data))
	if err != nil {
		return nil, err
	}
	m, err := e.EvalASTAsModule(path, object.NewScope(), tree)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[file] = m
	r.mu.Unlock()
	return m, nil
}

// Clear empties the cache, modified files are reloaded by the next import.
func (r *FileResolver) Clear() {
	r.mu.Lock()
	clear(r.cache)
	r.mu.Unlock()
}
