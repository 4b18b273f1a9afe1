// Package i18n serves localized UI strings from embedded YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source is the language the backend answers in and the catalogs fall back to.
const Source = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog maps a language to its flattened "section.key" messages.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded locale files.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadFS(localeFS, "locales")
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("i18n: embedded locales are invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// LoadFS reads every <lang>.yaml under dir.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	c := &Catalog{messages: make(map[string]map[string]string)}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		lang := strings.TrimSuffix(e.Name(), ".yaml")
		if err := c.Add(lang, b); err != nil {
			return nil, fmt.Errorf("locale %s: %w", lang, err)
		}
	}
	return c, nil
}

// Add parses a YAML document of nested sections and registers it for lang.
func (c *Catalog) Add(lang string, doc []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return err
	}
	flat := make(map[string]string)
	flatten("", raw, flat)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages == nil {
		c.messages = make(map[string]map[string]string)
	}
	c.messages[strings.ToLower(lang)] = flat
	return nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]interface{}:
			flatten(key, vv, out)
		case nil:
		default:
			out[key] = fmt.Sprint(vv)
		}
	}
}

// T looks up key for lang, falling back to the base language ("hi-IN" -> "hi"), then to
// English, then to the key itself.
func (c *Catalog) T(lang, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range candidates(lang) {
		if msg, ok := c.messages[l][key]; ok {
			return msg
		}
	}
	return key
}

// Tf is T followed by fmt.Sprintf.
func (c *Catalog) Tf(lang, key string, args ...interface{}) string {
	return fmt.Sprintf(c.T(lang, key), args...)
}

// Languages lists the loaded languages, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func candidates(lang string) []string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	out := make([]string, 0, 3)
	if lang != "" {
		out = append(out, lang)
		if i := strings.IndexAny(lang, "-_"); i > 0 {
			out = append(out, lang[:i])
		}
	}
	return append(out, Source)
}

// T uses the default catalog.
func T(lang, key string) string { return Default().T(lang, key) }

// Tf uses the default catalog.
func Tf(lang, key string, args ...interface{}) string { return Default().Tf(lang, key, args...) }
