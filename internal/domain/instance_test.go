package domain

import "testing"

func TestBootUncleanRestart(t *testing.T) {
	tests := []struct {
		name string
		boot Boot
		want bool
	}{
		{name: "first start", boot: Boot{}, want: false},
		{name: "after graceful stop", boot: Boot{Previous: &Instance{CleanShutdown: true}}, want: false},
		{name: "after crash", boot: Boot{Previous: &Instance{CleanShutdown: false}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.boot.UncleanRestart(); got != tt.want {
				t.Errorf("UncleanRestart() = %v, want %v", got, tt.want)
			}
		})
	}
}
