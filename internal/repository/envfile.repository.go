package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ConfigEntry is one KEY=VALUE pair in write order.
type ConfigEntry struct {
	Key   string
	Value string
}

// EnvFileRepository persists gateway configuration as a line-oriented
// KEY=VALUE file. Writes go through a temp file plus rename so a rotation
// never leaves a half-written file behind.
type EnvFileRepository struct {
	path string
}

func NewEnvFileRepository(path string) *EnvFileRepository {
	return &EnvFileRepository{path: path}
}

func (r *EnvFileRepository) Path() string {
	return r.path
}

// ReadAll returns every entry in the file. A missing file is an empty store,
// not an error.
func (r *EnvFileRepository) ReadAll() (map[string]string, error) {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}

	entries, err := godotenv.Read(r.path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", r.path, err)
	}

	return entries, nil
}

// ReplaceNamespace rewrites the file keeping every key outside the prefix
// with its existing value and replacing the prefixed keys with exactly the
// given entries. Old prefixed keys never survive a successful call.
func (r *EnvFileRepository) ReplaceNamespace(prefix string, entries []ConfigEntry) error {
	existing, err := r.ReadAll()
	if err != nil {
		return err
	}

	preserved := make([]ConfigEntry, 0, len(existing))
	for key, value := range existing {
		if strings.HasPrefix(key, prefix) {
			continue
		}
		preserved = append(preserved, ConfigEntry{Key: key, Value: value})
	}
	sort.Slice(preserved, func(i, j int) bool { return preserved[i].Key < preserved[j].Key })

	var sb strings.Builder
	for _, entry := range append(preserved, entries...) {
		sb.WriteString(entry.Key)
		sb.WriteString("=")
		sb.WriteString(entry.Value)
		sb.WriteString("\n")
	}

	return r.writeAtomic(sb.String())
}

func (r *EnvFileRepository) writeAtomic(content string) error {
	dir := filepath.Dir(r.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp env file: %w", err)
	}

	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp env file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp env file: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace env file: %w", err)
	}

	return nil
}
