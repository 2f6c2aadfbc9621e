package alloc

import "testing"

func TestMeasure(t *testing.T) {
	tests := []struct {
		used, capacity int
		percent        int
		near, over     bool
		status         Status
	}{
		{0, 1024, 0, false, false, StatusOK},
		{512, 1024, 50, false, false, StatusOK},
		{819, 1024, 80, false, false, StatusOK},
		{820, 1024, 80, true, false, StatusNearLimit},
		{900, 1024, 88, true, false, StatusNearLimit},
		{1024, 1024, 100, true, false, StatusNearLimit},
		{1025, 1024, 100, false, true, StatusOver},
		{2048, 1024, 200, false, true, StatusOver},
		{0, 0, 0, false, false, StatusOK},
		{5, 0, 0, false, true, StatusOver},
	}

	for _, tt := range tests {
		u := Measure(tt.used, tt.capacity)
		if u.Percent != tt.percent {
			t.Errorf("Measure(%d, %d).Percent = %d, want %d", tt.used, tt.capacity, u.Percent, tt.percent)
		}
		if u.NearLimit != tt.near {
			t.Errorf("Measure(%d, %d).NearLimit = %v, want %v", tt.used, tt.capacity, u.NearLimit, tt.near)
		}
		if u.Over != tt.over {
			t.Errorf("Measure(%d, %d).Over = %v, want %v", tt.used, tt.capacity, u.Over, tt.over)
		}
		if u.Status() != tt.status {
			t.Errorf("Measure(%d, %d).Status() = %v, want %v", tt.used, tt.capacity, u.Status(), tt.status)
		}
	}
}

func TestUtilizationFree(t *testing.T) {
	if got := Measure(1000, 1024).Free(); got != 24 {
		t.Errorf("Free() = %d, want 24", got)
	}
	if got := Measure(1100, 1024).Free(); got != 0 {
		t.Errorf("Free() over capacity = %d, want 0", got)
	}
}

func TestPortUtilizationIsReadOnly(t *testing.T) {
	p := newPort("r", 0)
	p.add(Model{Name: "arch", StartChannel: Ptr(1), PixelCount: 900})

	_ = p.Utilization()
	_ = p.Utilization()

	if p.Used != 900 || len(p.Models) != 1 {
		t.Errorf("Utilization mutated port: used=%d models=%d", p.Used, len(p.Models))
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{StatusOK: "ok", StatusNearLimit: "near-limit", StatusOver: "over"} {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
