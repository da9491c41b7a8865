package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmercer/gamemaster/pkg/entity"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world-data-dir> [more-dirs...]\n", os.Args[0])
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	validator := &WorldValidator{}

	if err := validator.validateDirs(os.Args[1:], logger); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("World data is valid!")
}

type WorldValidator struct {
	errors []string
}

func (v *WorldValidator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *WorldValidator) validateDirs(dirs []string, logger *slog.Logger) error {
	fmt.Printf("Validating world data in %v...\n", dirs)

	store := entity.NewMemoryStore(logger)
	loaded, skipped, err := store.LoadDirs(dirs)
	if err != nil {
		return fmt.Errorf("failed to load world data: %w", err)
	}

	fmt.Printf("Loaded %d entities, skipped %d records.\n", loaded, len(skipped))
	for _, diag := range skipped {
		v.errorf("skipped record: %s", diag.String())
	}

	v.validateReferences(store)

	if len(v.errors) > 0 {
		for _, e := range v.errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return fmt.Errorf("%d problem(s) found", len(v.errors))
	}
	return nil
}

// validateReferences checks that every containment and unlock reference
// points at an entity that exists, and that containers are locations or
// characters.
func (v *WorldValidator) validateReferences(store *entity.MemoryStore) {
	for _, e := range store.All() {
		if locID := e.LocationID(); locID != "" {
			container, err := store.Get(locID)
			if err != nil {
				v.errorf("%s: location_id %q does not exist", e.UniqueID, locID)
				continue
			}
			if container.Type == entity.TypeItem {
				v.errorf("%s: location_id %q is an item, expected a location or character", e.UniqueID, locID)
			}
		} else if e.Type != entity.TypeLocation {
			v.errorf("%s: %s has no location_id", e.UniqueID, e.Type)
		}

		if unlocks, ok := e.Data["unlocks"].(string); ok && unlocks != "" {
			if _, err := store.Get(unlocks); err != nil {
				v.errorf("%s: unlocks %q does not exist", e.UniqueID, unlocks)
			}
		}
	}

	if len(store.ListByType(entity.TypeLocation)) == 0 {
		v.errorf("world has no locations")
	}
}
