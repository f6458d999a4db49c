package tournament

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GameArtifactName returns the log file name for a schedule index.
func GameArtifactName(index int) string {
	return fmt.Sprintf("game_%04d.json", index)
}

// StandingsArtifactName is the final table file written next to the logs.
const StandingsArtifactName = "standings.json"

// WriteJSON writes v as indented JSON through a temp file and rename, so
// a reader never sees a partial artifact.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
