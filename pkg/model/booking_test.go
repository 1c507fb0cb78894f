package model

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestBooking_Kind(t *testing.T) {
	tests := []struct {
		name    string
		booking Booking
		want    ResourceType
		wantErr bool
	}{
		{
			name:    "equipment booking",
			booking: Booking{ID: 1, Equipment: intPtr(5)},
			want:    ResourceEquipment,
		},
		{
			name:    "workspace booking",
			booking: Booking{ID: 2, Workspace: intPtr(3)},
			want:    ResourceWorkspace,
		},
		{
			name:    "both set resolves to equipment",
			booking: Booking{ID: 3, Equipment: intPtr(5), Workspace: intPtr(3)},
			want:    ResourceEquipment,
		},
		{
			name:    "neither set is an error",
			booking: Booking{ID: 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.booking.Kind()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Kind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCombineSlotTimes(t *testing.T) {
	got, err := CombineSlotTimes("2024-07-01", "14:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 7, 1, 14, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("CombineSlotTimes() = %v, want %v", got, want)
	}
}

func TestFormatTimestamp_NoTimezoneSuffix(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	got := FormatTimestamp(ts)
	if got != "2024-06-01T10:00:00" {
		t.Errorf("FormatTimestamp() = %q, want %q", got, "2024-06-01T10:00:00")
	}
}

func TestParseTimestamp_RoundTrip(t *testing.T) {
	in := "2024-06-01T10:30:00"
	parsed, err := ParseTimestamp(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatTimestamp(parsed) != in {
		t.Errorf("round trip produced %q, want %q", FormatTimestamp(parsed), in)
	}
}
