package masslynx

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ChrisMcGann/RawKey/pkg/core"
)

// Driver opens acquisitions of one storage flavour.
type Driver interface {
	// Detect reports whether the driver can open the acquisition directory.
	Detect(path string) bool
	Open(path string) (RawReader, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics if the name is
// already taken, like database/sql.Register.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("masslynx: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("masslynx: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidatePath checks that path names an existing directory.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty acquisition path", core.ErrInvalidPath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrInvalidPath, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", core.ErrInvalidPath, path)
	}
	return nil
}

// Open validates the acquisition directory and opens it with the first
// registered driver, in name order, that detects it.
func Open(path string) (RawReader, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	for _, name := range Drivers() {
		driversMu.RLock()
		d := drivers[name]
		driversMu.RUnlock()

		if d.Detect(path) {
			return d.Open(path)
		}
	}
	return nil, NewError("open", -1, -1, "no registered driver recognises %s (drivers: %v)", path, Drivers())
}
