package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the drivercheck config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/drivercheck if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "drivercheck"), nil
}

// DefaultAliases maps driver names seen in session data to the names used
// by SYSTEM$CLIENT_VERSION_INFO() where the two are known to differ.
// Matching is case-insensitive, so pure case differences need no entry.
var DefaultAliases = map[string]string{
	"Python":  "PythonConnector",
	"NodeJS":  "JavaScript",
	"Node.js": "JavaScript",
	"DotNet":  ".NET",
}

// AliasFile is the name of the alias file inside Dir.
const AliasFile = "aliases"

// AliasConfig holds the driver alias mappings declared by the user.
// Each key is the driver name as it appears in a session's client
// application id and the value is the driver name in the support table.
type AliasConfig struct {
	Aliases map[string]string
	// Skipped lists the 1-based line numbers that were not "from = to".
	Skipped []int
}

// LoadAliases reads {dir}/aliases. A missing file yields an empty config.
// Malformed lines are skipped and recorded in Skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	f, err := os.Open(filepath.Join(dir, AliasFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &AliasConfig{Aliases: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open alias file: %w", err)
	}
	defer f.Close()
	return parseAliases(f)
}

func parseAliases(r io.Reader) (*AliasConfig, error) {
	cfg := &AliasConfig{Aliases: map[string]string{}}

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Driver names never contain "=".
		from, to, ok := strings.Cut(line, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			cfg.Skipped = append(cfg.Skipped, n)
			continue
		}
		cfg.Aliases[from] = to
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	return cfg, nil
}

// WithDefaults returns DefaultAliases overlaid with the user's entries.
// A user entry replaces a default whose name differs only in case.
func (a *AliasConfig) WithDefaults() map[string]string {
	out := make(map[string]string, len(DefaultAliases)+len(a.Aliases))
	for k, v := range DefaultAliases {
		out[k] = v
	}
	for k, v := range a.Aliases {
		for d := range out {
			if strings.EqualFold(d, k) {
				delete(out, d)
			}
		}
		out[k] = v
	}
	return out
}
