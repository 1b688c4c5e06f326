package provider

import "testing"

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want int64
	}{
		{"within bounds", 50, 50},
		{"at the limit", 100, 100},
		{"over the limit", 500, 100},
		{"zero", 0, 100},
		{"negative", -1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPageSize(tt.in); got != tt.want {
				t.Errorf("clampPageSize(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
