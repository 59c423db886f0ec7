// Package messages defines the Bubble Tea messages the pipeline and the
// browser driver send to the dashboard.
package messages

// StatsUpdatedMsg tells the dashboard to re-read the store.
type StatsUpdatedMsg struct{}

// StatusMsg replaces the status line at the bottom of the dashboard.
type StatusMsg struct {
	Text string
}
