package bars

import (
	"testing"
	"time"
)

func ts(minute int) time.Time {
	return time.Date(2025, 6, 1, 10, minute, 0, 0, time.UTC)
}

func TestValidateSequence(t *testing.T) {
	tests := []struct {
		name    string
		seq     []Bar
		wantErr bool
	}{
		{
			name: "strictly ascending",
			seq: []Bar{
				{Timestamp: ts(0), Open: 100, High: 101, Low: 99, Close: 100.5},
				{Timestamp: ts(1), Open: 100.5, High: 102, Low: 100, Close: 101},
				{Timestamp: ts(2), Open: 101, High: 101.5, Low: 100.2, Close: 100.8},
			},
			wantErr: false,
		},
		{
			name: "duplicate timestamp",
			seq: []Bar{
				{Timestamp: ts(0), Close: 100},
				{Timestamp: ts(0), Close: 101},
			},
			wantErr: true,
		},
		{
			name: "out of order",
			seq: []Bar{
				{Timestamp: ts(5), Close: 100},
				{Timestamp: ts(3), Close: 101},
			},
			wantErr: true,
		},
		{
			name:    "empty is valid",
			seq:     nil,
			wantErr: false,
		},
		{
			name:    "single bar is valid",
			seq:     []Bar{{Timestamp: ts(0), Close: 100}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequence(tt.seq)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSequence() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloses(t *testing.T) {
	seq := []Bar{
		{Timestamp: ts(0), Close: 100},
		{Timestamp: ts(1), Close: 101.5},
		{Timestamp: ts(2), Close: 99.25},
	}
	got := Closes(seq)
	want := []float64{100, 101.5, 99.25}
	if len(got) != len(want) {
		t.Fatalf("Closes() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Closes()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}
