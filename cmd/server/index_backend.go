package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gridarena.ai/internal/persistence/indexdb"
	"gridarena.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.Journal
	Close() error
	Stats() indexdb.Stats
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GRIDARENA_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported GRIDARENA_INDEX_BACKEND: %s", backend)
	}
}
