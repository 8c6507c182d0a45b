package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmined/sessionvault/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".sessionvault", "config.json")
	DefaultLogFilePath = filepath.Join(home, ".sessionvault", "logs", "sessionvault.log")
	DefaultSourceDir   = filepath.Join(home, ".claude", "projects")
	DefaultBackupRoot  = filepath.Join(home, "SessionVault")
)

// DefaultCheckGapDays is how close (in days) the source's oldest session may
// drift toward the recorded oldest before `check` triggers a full sync.
const DefaultCheckGapDays = 3

// Config resolves where session history is read from and where the backup
// root (mirror, archives, metadata) lives.
type Config struct {
	SourceDir    string `json:"source_dir"`
	BackupRoot   string `json:"backup_root"`
	CheckGapDays int    `json:"check_gap_days,omitempty"`
	Path         string `json:"-"`
}

// Validate fills in defaults for unset fields and resolves both directory
// paths to absolute form.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.BackupRoot == "" {
		c.BackupRoot = DefaultBackupRoot
	}
	if c.CheckGapDays <= 0 {
		c.CheckGapDays = DefaultCheckGapDays
	}

	src, err := utils.ResolvePath(c.SourceDir)
	if err != nil {
		return fmt.Errorf("resolve source dir: %w", err)
	}
	root, err := utils.ResolvePath(c.BackupRoot)
	if err != nil {
		return fmt.Errorf("resolve backup root: %w", err)
	}

	c.SourceDir = src
	c.BackupRoot = root
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	c.Path = path
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
