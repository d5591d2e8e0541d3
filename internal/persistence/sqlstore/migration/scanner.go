package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scan reads every migration file in dir of fsys, ordered by version.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, NewMigrationError("", dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, description, err := ParseFileName(entry.Name())
		if err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		number, _ := strconv.Atoi(version)
		if existing, ok := seen[number]; ok {
			return nil, NewMigrationError(version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, version, existing, entry.Name()))
		}
		seen[number] = entry.Name()

		filePath := path.Join(dir, entry.Name())
		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, NewMigrationError(version, filePath, "read file", err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, NewMigrationError(version, filePath, "read file", fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile))
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         string(content),
			FilePath:    filePath,
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ParseFileName splits a migration filename into version and description.
func ParseFileName(name string) (version, description string, err error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return "", "", fmt.Errorf("%w: filename %q does not match pattern '{version}_{description}.sql'", ErrInvalidMigrationFile, name)
	}
	return matches[1], matches[2], nil
}

// SplitStatements splits SQL on semicolons and drops comment-only lines.
func SplitStatements(sql string) []string {
	var statements []string
	for _, chunk := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}
