package models

import (
	"encoding/json"
	"testing"
)

func TestArtifactMetadata_Iteration(t *testing.T) {
	tests := []struct {
		name    string
		meta    ArtifactMetadata
		want    int64
		wantOK  bool
		wantErr bool
	}{
		{name: "absent", meta: ArtifactMetadata{}, wantOK: false},
		{name: "nil map", meta: nil, wantOK: false},
		{name: "int", meta: ArtifactMetadata{"iteration": 5}, want: 5, wantOK: true},
		{name: "float64 from JSON", meta: ArtifactMetadata{"iteration": float64(7)}, want: 7, wantOK: true},
		{name: "json.Number", meta: ArtifactMetadata{"iteration": json.Number("3")}, want: 3, wantOK: true},
		{name: "zero", meta: ArtifactMetadata{"iteration": 0}, want: 0, wantOK: true},
		{name: "fractional", meta: ArtifactMetadata{"iteration": 1.5}, wantErr: true},
		{name: "negative", meta: ArtifactMetadata{"iteration": -1}, wantErr: true},
		{name: "string", meta: ArtifactMetadata{"iteration": "5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.meta.Iteration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Iteration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("Iteration() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Iteration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArtifactMetadata_SampleRate(t *testing.T) {
	rate, ok, err := ArtifactMetadata{"sample_rate": 16000}.SampleRate()
	if err != nil || !ok || rate != 16000 {
		t.Errorf("SampleRate() = %v, %v, %v; want 16000, true, nil", rate, ok, err)
	}

	_, ok, err = ArtifactMetadata{}.SampleRate()
	if err != nil || ok {
		t.Errorf("SampleRate() on empty metadata = ok %v, err %v; want false, nil", ok, err)
	}

	if _, _, err := (ArtifactMetadata{"sample_rate": "fast"}).SampleRate(); err == nil {
		t.Error("expected error for non-numeric sample_rate")
	}
}

func TestArtifactMetadata_Labels(t *testing.T) {
	got := ArtifactMetadata{"labels": []any{"cat", 3, true}}.Labels()
	want := []string{"cat", "3", "true"}
	if len(got) != len(want) {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if labels := (ArtifactMetadata{}).Labels(); labels != nil {
		t.Errorf("Labels() on empty metadata = %v, want nil", labels)
	}
}

func TestMetricSeries_Len(t *testing.T) {
	s := MetricSeries{Values: []float64{1, 2, 3}, Steps: []int64{0, 1}}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}
