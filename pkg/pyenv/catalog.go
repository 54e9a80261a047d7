package pyenv

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RuntimeSpec describes one downloadable standalone CPython build.
type RuntimeSpec struct {
	URL    string `yaml:"url"`
	Sha256 string `yaml:"sha256"`
	// Python is the interpreter path inside the extracted archive, relative
	// to the runtime directory.
	Python string `yaml:"python"`
	// Strip removes that many leading path elements from every archive entry.
	Strip int `yaml:"strip,omitempty"`
}

// Catalog lists the standalone runtime builds per platform. It's checked into
// the repository next to tasks.star; the bootstrap never fetches anything
// that isn't pinned here with a checksum.
type Catalog struct {
	Version  string                 `yaml:"version"`
	Runtimes map[string]RuntimeSpec `yaml:"runtimes"`
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "could not open file %s", path)
	}

	var catalog Catalog
	err = yaml.Unmarshal(data, &catalog)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}

	return &catalog, nil
}

// ForPlatform returns the runtime build for the given GOOS/GOARCH pair.
func (c *Catalog) ForPlatform(goos, goarch string) (RuntimeSpec, error) {
	key := fmt.Sprintf("%s-%s", goos, goarch)
	spec, ok := c.Runtimes[key]
	if !ok {
		return RuntimeSpec{}, eris.Errorf("no Python %s build is available for %s", c.Version, key)
	}

	if spec.Sha256 == "" {
		return RuntimeSpec{}, eris.Errorf("the %s runtime entry doesn't have a checksum", key)
	}

	return spec, nil
}
