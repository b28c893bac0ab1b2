// Package scope resolves the storage addressing mode and performs the
// authorization-prefix check every key-taking route goes through.
//
// In bucket mode the single user owns the whole bucket. In folder mode every
// key the user may touch starts with "<folderID>/".
package scope

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeBucket Mode = "bucket"
	ModeFolder Mode = "folder"
)

// ParseMode validates a configured storage mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBucket, ModeFolder:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown storage mode %q (want %q or %q)", s, ModeBucket, ModeFolder)
}

// Resolver holds the process-wide storage configuration.
type Resolver struct {
	mode          Mode
	defaultFolder string
}

func NewResolver(mode Mode, defaultFolderID string) *Resolver {
	return &Resolver{mode: mode, defaultFolder: defaultFolderID}
}

func (r *Resolver) Mode() Mode { return r.mode }

// For returns the Scope of a user. An identity without its own folder id
// falls back to the configured one.
func (r *Resolver) For(folderID string) Scope {
	if folderID == "" {
		folderID = r.defaultFolder
	}
	return Scope{Mode: r.mode, FolderID: folderID}
}

// Scope is the set of keys one user may address.
type Scope struct {
	Mode     Mode
	FolderID string
}

// Prefix is the canonical key prefix of the scope ("" in bucket mode).
func (s Scope) Prefix() string {
	if s.Mode == ModeBucket {
		return ""
	}
	return s.FolderID + "/"
}

// Allows reports whether key lies inside the scope.
func (s Scope) Allows(key string) bool {
	if s.Mode == ModeBucket {
		return true
	}
	if s.FolderID == "" {
		return false
	}
	return strings.HasPrefix(key, s.Prefix())
}

// Qualify turns a user-supplied name into a key inside the scope.
// Names already carrying the prefix are returned unchanged.
func (s Scope) Qualify(name string) string {
	name = strings.TrimLeft(name, "/")
	if s.Mode == ModeBucket || strings.HasPrefix(name, s.Prefix()) {
		return name
	}
	return s.Prefix() + name
}

// Relative strips the scope prefix from key, for display.
func (s Scope) Relative(key string) string {
	return strings.TrimPrefix(key, s.Prefix())
}
