package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads one or more YAML documents, each holding a definition
func Decode(r io.Reader) ([]*Definition, error) {
	dec := yaml.NewDecoder(r)

	var defs []*Definition
	for {
		var def Definition
		err := dec.Decode(&def)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode definition: %w", err)
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, &def)
	}

	return defs, nil
}

// LoadFile reads definitions from a YAML file
func LoadFile(path string) ([]*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	defs, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadDir reads every .yaml/.yml file in a directory
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		loaded, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}

	return defs, nil
}

// LoadInto loads definitions from a file or directory into a registry
func LoadInto(reg *MemoryRegistry, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	var defs []*Definition
	if info.IsDir() {
		defs, err = LoadDir(path)
	} else {
		defs, err = LoadFile(path)
	}
	if err != nil {
		return 0, err
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return 0, err
		}
	}
	return len(defs), nil
}
