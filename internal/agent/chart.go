package agent

import "strings"

// ChartKind is the closed set of visualization types the frontend renders.
type ChartKind string

const (
	ChartBar      ChartKind = "bar"
	ChartLine     ChartKind = "line"
	ChartPie      ChartKind = "pie"
	ChartDoughnut ChartKind = "doughnut"
	ChartTable    ChartKind = "table"
	ChartMetric   ChartKind = "metric"
)

// ParseChartKind coerces arbitrary model output into the enumeration; any
// value outside the set becomes table.
func ParseChartKind(s string) ChartKind {
	switch ChartKind(strings.ToLower(strings.TrimSpace(s))) {
	case ChartBar:
		return ChartBar
	case ChartLine:
		return ChartLine
	case ChartPie:
		return ChartPie
	case ChartDoughnut:
		return ChartDoughnut
	case ChartMetric:
		return ChartMetric
	case ChartTable:
		return ChartTable
	default:
		return ChartTable
	}
}
