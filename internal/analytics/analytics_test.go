package analytics

import "testing"

func TestWeekly(t *testing.T) {
	r := Weekly()
	if len(r.Week) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(r.Week))
	}
	if r.Week[0].Label != "Mon" || r.Week[6].Label != "Sun" {
		t.Errorf("Unexpected labels %q..%q", r.Week[0].Label, r.Week[6].Label)
	}
	if r.Week[4].Visits != 250 || r.Week[4].Bookings != 15 || r.Week[4].Revenue != 3000 {
		t.Errorf("Unexpected Friday %+v", r.Week[4])
	}

	if r.Totals.Visits != 1460 {
		t.Errorf("Expected 1460 visits, got %d", r.Totals.Visits)
	}
	if r.Totals.Bookings != 88 {
		t.Errorf("Expected 88 bookings, got %d", r.Totals.Bookings)
	}
	if r.Totals.Revenue != 17600 {
		t.Errorf("Expected 17600 revenue, got %d", r.Totals.Revenue)
	}
	if r.Totals.ConversionRate <= 0.06 || r.Totals.ConversionRate >= 0.061 {
		t.Errorf("Unexpected conversion rate %f", r.Totals.ConversionRate)
	}
}

func TestPercent(t *testing.T) {
	r := Weekly()
	if got := r.Max("visits"); got != 300 {
		t.Errorf("Expected max 300, got %d", got)
	}
	if got := r.Percent("visits", 150); got != 50 {
		t.Errorf("Expected 50%%, got %d", got)
	}
	if got := r.Percent("unknown", 10); got != 0 {
		t.Errorf("Expected 0 for unknown series, got %d", got)
	}
}
