package health

import (
	"context"
	"testing"
)

func TestRunReportsWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{name: "no checks", statuses: map[string]Status{}, want: StatusUp},
		{name: "all up", statuses: map[string]Status{"store": StatusUp, "cache": StatusUp}, want: StatusUp},
		{name: "one degraded", statuses: map[string]Status{"store": StatusUp, "cache": StatusDegraded}, want: StatusDegraded},
		{name: "down wins", statuses: map[string]Status{"store": StatusDown, "cache": StatusDegraded}, want: StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, status := range tt.statuses {
				status := status
				c.Register(name, func(ctx context.Context) ComponentHealth {
					return ComponentHealth{Status: status}
				})
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.statuses) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.statuses))
			}
			for name, comp := range report.Components {
				if comp.Latency == "" {
					t.Errorf("%s: latency not recorded", name)
				}
			}
		})
	}
}
