package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCapture(t *testing.T, folder, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(folder, name), []byte("pb"), 0o644); err != nil {
		t.Fatalf("Failed to write capture file: %v", err)
	}
}

func TestRotator_CreatesFirstFolder(t *testing.T) {
	rotator := NewRotator(t.TempDir(), 3)

	folder, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		t.Errorf("Expected folder to exist, stat err: %v", err)
	}
}

func TestRotator_ReturnsSameFolderBelowBound(t *testing.T) {
	rotator := NewRotator(t.TempDir(), 3)

	first, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	writeCapture(t, first, "trip_updates_20250101000000.pb")
	writeCapture(t, first, "trip_updates_20250101000010.pb")

	second, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same folder below bound, got %s then %s", first, second)
	}
}

func TestRotator_SealsFullFolderAndOpensNew(t *testing.T) {
	base := t.TempDir()
	rotator := NewRotator(base, 2)

	first, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	writeCapture(t, first, "a.pb")
	writeCapture(t, first, "b.pb")

	second, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	if first == second {
		t.Fatal("Expected a fresh folder once the bound is reached")
	}

	if _, err := os.Stat(filepath.Join(first, Marker)); err != nil {
		t.Errorf("Expected sealed folder to carry marker file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(second, Marker)); !os.IsNotExist(err) {
		t.Errorf("Expected new folder to be open (no marker), stat err: %v", err)
	}
}

func TestRotator_SealedFolderNeverReopened(t *testing.T) {
	base := t.TempDir()
	rotator := NewRotator(base, 1)

	var folders []string
	for i := 0; i < 3; i++ {
		folder, err := rotator.CurrentFolder("vehicle_positions")
		if err != nil {
			t.Fatalf("CurrentFolder failed: %v", err)
		}
		writeCapture(t, folder, "capture.pb")
		folders = append(folders, folder)
	}

	seen := make(map[string]bool)
	for _, f := range folders {
		if seen[f] {
			t.Errorf("Folder %s was reused after sealing", f)
		}
		seen[f] = true
	}
}

func TestRotator_NeverExceedsBound(t *testing.T) {
	base := t.TempDir()
	const maxFiles = 3
	rotator := NewRotator(base, maxFiles)

	for i := 0; i < 10; i++ {
		folder, err := rotator.CurrentFolder("trip_updates")
		if err != nil {
			t.Fatalf("CurrentFolder failed: %v", err)
		}
		writeCapture(t, folder, filepath.Base(folder)+"-"+string(rune('a'+i))+".pb")
	}

	categoryDir := filepath.Join(base, "trip_updates")
	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		t.Fatalf("Failed to list category dir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sealed, count, err := folderState(filepath.Join(categoryDir, e.Name()))
		if err != nil {
			t.Fatalf("folderState failed: %v", err)
		}
		if count > maxFiles {
			t.Errorf("Folder %s holds %d files, bound is %d", e.Name(), count, maxFiles)
		}
		_ = sealed
	}
}

func TestRotator_CategoriesAreIndependent(t *testing.T) {
	rotator := NewRotator(t.TempDir(), 1)

	tu, err := rotator.CurrentFolder("trip_updates")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	writeCapture(t, tu, "a.pb")

	// Filling trip_updates must not seal or rotate vehicle_positions
	vp1, err := rotator.CurrentFolder("vehicle_positions")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	vp2, err := rotator.CurrentFolder("vehicle_positions")
	if err != nil {
		t.Fatalf("CurrentFolder failed: %v", err)
	}
	if vp1 != vp2 {
		t.Errorf("Empty vehicle_positions folder rotated unexpectedly: %s vs %s", vp1, vp2)
	}
}
