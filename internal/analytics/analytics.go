// Package analytics serves the dashboard figures. There is no tracking
// behind it yet; the numbers are a fixed sample week.
package analytics

type Point struct {
	Label    string `json:"name"`
	Visits   int    `json:"visits"`
	Bookings int    `json:"bookings"`
	Revenue  int    `json:"revenue"`
}

type Totals struct {
	Visits         int     `json:"visits"`
	Bookings       int     `json:"bookings"`
	Revenue        int     `json:"revenue"`
	ConversionRate float64 `json:"conversionRate"`
}

type Report struct {
	Week   []Point `json:"week"`
	Totals Totals  `json:"totals"`
}

// Weekly returns the sample week and its totals.
func Weekly() Report {
	labels := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	visits := []int{100, 150, 200, 180, 250, 300, 280}
	bookings := []int{5, 8, 12, 10, 15, 18, 20}
	revenue := []int{1000, 1600, 2400, 2000, 3000, 3600, 4000}

	r := Report{Week: make([]Point, len(labels))}
	for i, l := range labels {
		r.Week[i] = Point{Label: l, Visits: visits[i], Bookings: bookings[i], Revenue: revenue[i]}
		r.Totals.Visits += visits[i]
		r.Totals.Bookings += bookings[i]
		r.Totals.Revenue += revenue[i]
	}
	if r.Totals.Visits > 0 {
		r.Totals.ConversionRate = float64(r.Totals.Bookings) / float64(r.Totals.Visits)
	}
	return r
}

// Max returns the largest value of a series, for scaling bar charts.
func (r Report) Max(series string) int {
	max := 0
	for _, p := range r.Week {
		v := p.value(series)
		if v > max {
			max = v
		}
	}
	return max
}

// Percent scales v against the largest value of a series.
func (r Report) Percent(series string, v int) int {
	max := r.Max(series)
	if max == 0 {
		return 0
	}
	return v * 100 / max
}

func (p Point) value(series string) int {
	switch series {
	case "visits":
		return p.Visits
	case "bookings":
		return p.Bookings
	case "revenue":
		return p.Revenue
	}
	return 0
}
