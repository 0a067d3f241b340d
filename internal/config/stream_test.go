package config

import "testing"

func TestPatrolArea_Normalize(t *testing.T) {
	a := &PatrolArea{XMin: 10, XMax: 2, YMin: 5, YMax: 1, ZoomLevel: 0.2}
	a.Normalize()

	if a.XMin != 2 || a.XMax != 10 {
		t.Errorf("expected XMin<XMax after normalize, got %v/%v", a.XMin, a.XMax)
	}
	if a.YMin != 1 || a.YMax != 5 {
		t.Errorf("expected YMin<YMax after normalize, got %v/%v", a.YMin, a.YMax)
	}
}

func TestStreamConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StreamConfig
		wantErr bool
	}{
		{
			name:    "missing stream id",
			cfg:     StreamConfig{ModelName: ModelPPE},
			wantErr: true,
		},
		{
			name:    "unknown model",
			cfg:     StreamConfig{StreamID: "cam_001", ModelName: "Unknown"},
			wantErr: true,
		},
		{
			name:    "grid mode without patrol area",
			cfg:     StreamConfig{StreamID: "cam_001", ModelName: ModelPPE, PatrolMode: PatrolGrid},
			wantErr: true,
		},
		{
			name: "grid mode with patrol area",
			cfg: StreamConfig{
				StreamID: "cam_001", ModelName: ModelPPE, PatrolMode: PatrolGrid,
				PatrolArea: &PatrolArea{XMin: 0, XMax: 1, YMin: 0, YMax: 1},
			},
			wantErr: false,
		},
		{
			name:    "pattern mode with too few waypoints",
			cfg:     StreamConfig{StreamID: "cam_001", ModelName: ModelPPE, PatrolMode: PatrolPattern, PatrolPattern: []Waypoint3D{{X: 0, Y: 0, Z: 0}}},
			wantErr: true,
		},
		{
			name: "pattern mode with enough waypoints",
			cfg: StreamConfig{
				StreamID: "cam_001", ModelName: ModelPPE, PatrolMode: PatrolPattern,
				PatrolPattern: []Waypoint3D{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}},
			},
			wantErr: false,
		},
		{
			name:    "valid minimal",
			cfg:     StreamConfig{StreamID: "cam_001", ModelName: ModelFire},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStreamConfig_Validate_NormalizesPatrolArea(t *testing.T) {
	cfg := StreamConfig{
		StreamID:   "cam_001",
		ModelName:  ModelPPE,
		PatrolMode: PatrolGrid,
		PatrolArea: &PatrolArea{XMin: 5, XMax: 1, YMin: 5, YMax: 1},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PatrolArea.XMin != 1 || cfg.PatrolArea.XMax != 5 {
		t.Errorf("expected patrol area normalized, got %+v", cfg.PatrolArea)
	}
}
