package visualize

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// stateCategory assigns an echarts graph category index to each state
// label, grouping nodes by state for the legend and per-category coloring.
var stateCategory = map[string]int{
	"outdated":   0,
	"updating":   1,
	"up_to_date": 2,
	"poisoned":   3,
	"stopped":    0,
	"running":    1,
	"zombie":     3,
}

var categoryNames = []string{"outdated/stopped", "updating/running", "up_to_date", "poisoned/zombie"}

const (
	graphSymbolSizePath = 30
	graphSymbolSizeTask = 20
)

// HTML renders snap as an interactive force-directed graph using go-echarts,
// writing a standalone HTML page to w.
func HTML(snap Snapshot, w io.Writer) error {
	nodes := make([]opts.GraphNode, 0, len(snap.Paths)+len(snap.Tasks))
	for _, p := range snap.Paths {
		nodes = append(nodes, opts.GraphNode{
			Name:       p.Name,
			SymbolSize: graphSymbolSizePath,
			Category:   stateCategory[p.State.String()],
		})
	}

	for _, t := range snap.Tasks {
		nodes = append(nodes, opts.GraphNode{
			Name:       t.Name,
			Symbol:     "rect",
			SymbolSize: graphSymbolSizeTask,
			Category:   stateCategory[t.State.String()],
		})
	}

	var links []opts.GraphLink

	for _, t := range snap.Tasks {
		for _, in := range t.Inputs {
			links = append(links, opts.GraphLink{Source: in, Target: t.Name})
		}

		for _, out := range t.Outputs {
			links = append(links, opts.GraphLink{Source: t.Name, Target: out})
		}
	}

	categories := make([]*opts.GraphCategory, len(categoryNames))
	for i, name := range categoryNames {
		categories[i] = &opts.GraphCategory{Name: name}
	}

	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Trakka run snapshot"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "800px"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	graph.AddSeries("tracker", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             "force",
			Roam:               opts.Bool(true),
			FocusNodeAdjacency: opts.Bool(true),
			Categories:         categories,
			Force:              &opts.GraphForce{Repulsion: 200},
		}),
	)

	return graph.Render(w)
}
