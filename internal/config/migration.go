package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// LegacyDataFile is where earlier releases kept the document,
// relative to the working directory.
var LegacyDataFile = filepath.Join("data", dataFileName)

// MigrateFromLegacy copies the legacy data file into dataDir if
// the data dir has no document yet. It reports whether a copy was
// made. Call this once during startup, before opening the store.
func MigrateFromLegacy(dataDir string) bool {
	dst := filepath.Join(dataDir, dataFileName)
	if _, err := os.Stat(dst); err == nil {
		return false // already migrated or created
	}
	if _, err := os.Stat(LegacyDataFile); err != nil {
		return false // no legacy document either
	}

	log.Printf("Migrating data from %s to %s", LegacyDataFile, dst)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Printf("migration: cannot create %s: %v", dataDir, err)
		return false
	}
	if err := copyFile(LegacyDataFile, dst, 0o644); err != nil {
		log.Printf("migration: copying data file: %v", err)
		return false
	}
	return true
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(
		dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode,
	)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying: %w", err)
	}
	return out.Close()
}
