package classpath

import (
	_ "embed"

	"github.com/pkg/errors"
)

//go:embed bootstrap.toml
var bootstrapHierarchy []byte

// Bootstrap returns a classpath preloaded with the platform hierarchy:
// Object, the array capability markers, the boxed primitives, String, Enum
// and the core collection interfaces.
func Bootstrap(imports ...string) (*Classpath, error) {
	cp := New(imports...)
	f, err := DecodeFile("bootstrap.toml", bootstrapHierarchy)
	if err != nil {
		return nil, err
	}
	if err := cp.Load(f); err != nil {
		return nil, errors.Wrap(err, "load bootstrap hierarchy")
	}
	return cp, nil
}
