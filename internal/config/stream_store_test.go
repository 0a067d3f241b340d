package config

import "testing"

func TestStreamStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStreamStore(t.TempDir())

	cfg := StreamConfig{
		StreamID:  "cam_001",
		RTSPLink:  "rtsp://example/cam1",
		ModelName: ModelPPE,
		IsActive:  true,
		SafeArea: &SafeArea{
			Coords:     []Point2D{{X: 1, Y: 2}, {X: 3, Y: 4}},
			StaticMode: true,
		},
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	cfgs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(cfgs) != 1 {
		t.Fatalf("expected 1 persisted config, got %d", len(cfgs))
	}
	got := cfgs[0]
	if got.StreamID != cfg.StreamID || got.RTSPLink != cfg.RTSPLink {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
	if got.SafeArea == nil || len(got.SafeArea.Coords) != 2 {
		t.Errorf("expected safe area to round-trip, got %+v", got.SafeArea)
	}
}

func TestStreamStore_LoadAll_MissingDirIsEmpty(t *testing.T) {
	store := NewStreamStore(t.TempDir() + "/does-not-exist")
	cfgs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(cfgs) != 0 {
		t.Errorf("expected empty collection, got %d", len(cfgs))
	}
}

func TestStreamStore_Save_NormalizesPatrolArea(t *testing.T) {
	store := NewStreamStore(t.TempDir())
	cfg := StreamConfig{
		StreamID:   "cam_002",
		ModelName:  ModelPPE,
		PatrolMode: PatrolGrid,
		PatrolArea: &PatrolArea{XMin: 5, XMax: 1, YMin: 5, YMax: 1},
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	cfgs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if cfgs[0].PatrolArea.XMin != 1 || cfgs[0].PatrolArea.XMax != 5 {
		t.Errorf("expected normalized bounds to persist, got %+v", cfgs[0].PatrolArea)
	}
}

func TestStreamStore_Delete(t *testing.T) {
	store := NewStreamStore(t.TempDir())
	cfg := StreamConfig{StreamID: "cam_003", ModelName: ModelFire}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := store.Delete("cam_003"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	cfgs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(cfgs) != 0 {
		t.Errorf("expected no persisted configs after delete, got %d", len(cfgs))
	}
	if err := store.Delete("cam_003"); err != nil {
		t.Errorf("deleting an already-absent document should not error, got %v", err)
	}
}
