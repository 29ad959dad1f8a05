// Package icons resolves node icons to image assets.
//
// A [Resolver] maps a (category, icon key) pair to an [Asset]. The
// [Catalog] implementation is backed by TOML: an embedded default catalog
// covers the AWS, on-prem and generic categories, and user catalogs can be
// merged on top.
//
//	cat := icons.Default().WithAssetDir("/usr/share/archviz/icons")
//	asset, err := cat.Resolve(diagram.AWSCompute, "ecs")
//
// Unknown categories and keys fail with an ICON_RESOLUTION error, as do
// asset files missing from the asset directory; the serializer never
// substitutes a blank node.
package icons

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/archviz/pkg/diagram"
	errs "github.com/matzehuels/archviz/pkg/errors"
)

//go:embed catalog.toml
var defaultCatalog []byte

// Asset is a resolved icon.
type Asset struct {
	Category diagram.Category
	Key      string
	File     string // asset path relative to the asset directory
	Path     string // absolute path, or "" when no asset directory is set
	Color    string // category accent color, used when images are unavailable
}

// Resolver maps a category and icon key to an asset.
type Resolver interface {
	Resolve(category diagram.Category, key string) (Asset, error)
}

// ResolverFunc adapts a function to the [Resolver] interface.
type ResolverFunc func(category diagram.Category, key string) (Asset, error)

// Resolve calls f(category, key).
func (f ResolverFunc) Resolve(category diagram.Category, key string) (Asset, error) {
	return f(category, key)
}

type categoryDef struct {
	Color string            `toml:"color"`
	Icons map[string]string `toml:"icons"`
}

// Catalog is an immutable icon catalog. Methods that change it return a
// new Catalog.
type Catalog struct {
	entries map[diagram.Category]categoryDef
	dir     string
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(defaultCatalog)
})

// Default returns the embedded default catalog.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("icons: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a TOML catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]categoryDef
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidDocument, err, "parse icon catalog")
	}

	entries := make(map[diagram.Category]categoryDef, len(raw))
	for name, def := range raw {
		if len(def.Icons) == 0 {
			return nil, errs.New(errs.ErrCodeInvalidDocument, "icon catalog: category %q has no icons", name)
		}
		for key, file := range def.Icons {
			if file == "" || filepath.IsAbs(file) {
				return nil, errs.New(errs.ErrCodeInvalidDocument, "icon catalog: %s.%s must be a relative asset path", name, key)
			}
		}
		entries[diagram.Category(name)] = def
	}
	return &Catalog{entries: entries}, nil
}

// Load reads a TOML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "icon catalog %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read icon catalog: %w", err)
	}
	return Parse(data)
}

// Merge returns a catalog containing c's icons overlaid with other's.
// Icons and colors from other win on conflict. The asset directory of c is
// kept.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{entries: make(map[diagram.Category]categoryDef, len(c.entries)), dir: c.dir}
	for cat, def := range c.entries {
		out.entries[cat] = categoryDef{Color: def.Color, Icons: maps.Clone(def.Icons)}
	}
	if other == nil {
		return out
	}
	for cat, def := range other.entries {
		cur, ok := out.entries[cat]
		if !ok {
			out.entries[cat] = categoryDef{Color: def.Color, Icons: maps.Clone(def.Icons)}
			continue
		}
		if def.Color != "" {
			cur.Color = def.Color
		}
		maps.Copy(cur.Icons, def.Icons)
		out.entries[cat] = cur
	}
	return out
}

// WithAssetDir returns a copy of c whose assets resolve under dir. Resolve
// then requires the asset file to exist.
func (c *Catalog) WithAssetDir(dir string) *Catalog {
	return &Catalog{entries: c.entries, dir: dir}
}

// Resolve implements [Resolver].
func (c *Catalog) Resolve(category diagram.Category, key string) (Asset, error) {
	def, ok := c.entries[category]
	if !ok {
		return Asset{}, errs.New(errs.ErrCodeIconResolution, "unknown icon category %q", category)
	}
	file, ok := def.Icons[key]
	if !ok {
		return Asset{}, errs.New(errs.ErrCodeIconResolution, "no icon %q in category %q", key, category)
	}

	a := Asset{Category: category, Key: key, File: file, Color: def.Color}
	if c.dir != "" {
		a.Path = filepath.Join(c.dir, filepath.FromSlash(file))
		info, err := os.Stat(a.Path)
		if err != nil {
			return Asset{}, errs.Wrap(errs.ErrCodeIconResolution, err, "icon %s.%s: asset %s", category, key, file)
		}
		if info.IsDir() {
			return Asset{}, errs.New(errs.ErrCodeIconResolution, "icon %s.%s: asset %s is a directory", category, key, file)
		}
	}
	return a, nil
}

// Categories returns the catalog's categories in sorted order.
func (c *Catalog) Categories() []diagram.Category {
	return slices.Sorted(maps.Keys(c.entries))
}

// Keys returns the icon keys of a category in sorted order.
func (c *Catalog) Keys(category diagram.Category) []string {
	return slices.Sorted(maps.Keys(c.entries[category].Icons))
}

// Len returns the total number of icons.
func (c *Catalog) Len() int {
	n := 0
	for _, def := range c.entries {
		n += len(def.Icons)
	}
	return n
}

var _ Resolver = (*Catalog)(nil)
