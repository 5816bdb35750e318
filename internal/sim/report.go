package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/gogpu/texcache"
	"github.com/gogpu/texcache/backend/soft"
)

// Report is the outcome of a scenario run.
type Report struct {
	Name        string         `json:"name,omitempty"`
	Failures    int            `json:"failures"`
	CachedPages int            `json:"cached_pages"`
	Stats       texcache.Stats `json:"stats"`
	Backend     soft.Stats     `json:"backend"`
	Results     []OpResult     `json:"results"`
}

// WriteReport writes rep as indented JSON. The file is replaced atomically
// so a reader never sees a partial report.
func WriteReport(path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads a JSONC cache configuration file. A missing file yields
// the zero Config.
func LoadConfig(path string) (texcache.Config, error) {
	var cfg texcache.Config
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cfg, fmt.Errorf("config %s: invalid JSONC: %w", path, err)
	}
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
