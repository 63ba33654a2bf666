package domain

import "testing"

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		in        PageRequest
		wantPage  int
		wantLimit int
	}{
		{"零值取默认", PageRequest{}, 1, 20},
		{"负页码取默认", PageRequest{Page: -3, Limit: 50}, 1, 50},
		{"超限截断", PageRequest{Page: 2, Limit: 500}, 2, 100},
		{"正常值不变", PageRequest{Page: 3, Limit: 10}, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			if tt.in.Page != tt.wantPage || tt.in.Limit != tt.wantLimit {
				t.Errorf("Normalize() = %d/%d, want %d/%d", tt.in.Page, tt.in.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestPageRequest_Offset(t *testing.T) {
	p := PageRequest{Page: 3, Limit: 20}
	if got := p.Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
