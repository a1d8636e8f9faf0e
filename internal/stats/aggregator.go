package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"recoagent/internal/logstore"
	"recoagent/internal/models"
)

// Token and cost figures are synthetic placeholders (30 tokens per turn at a
// flat rate), not a billing computation.
const (
	tokensPerTurn = 30
	costPerToken  = 0.0001
)

// DefaultTimelineSize is how many turns the realtime view covers.
const DefaultTimelineSize = 7

// Aggregator computes read-only summaries over an agent's chat log. Every
// operation returns a well-defined zero result when the log is missing or
// empty; no "no data yet" error ever reaches a caller.
type Aggregator struct {
	logs *logstore.Store
}

// NewAggregator builds an aggregator over the given log store.
func NewAggregator(logs *logstore.Store) *Aggregator {
	return &Aggregator{logs: logs}
}

// Summarize projects the agent's full log into a StatsSummary.
func (a *Aggregator) Summarize(agentID int64) models.StatsSummary {
	turns := a.logs.ReadAll(agentID)
	if len(turns) == 0 {
		return models.StatsSummary{
			Executions:    0,
			AvgDuration:   "0s",
			LastExecution: "-",
			SuccessRate:   "0%",
			Tokens:        0,
			Cost:          "0.00$",
			API:           "inconnu",
			State:         models.StateInactive,
		}
	}

	var totalDuration float64
	successCount := 0
	for _, turn := range turns {
		totalDuration += turn.Duration
		if turn.Success {
			successCount++
		}
	}

	last := turns[len(turns)-1]
	state := models.StateError
	if last.Success {
		state = models.StateActive
	}
	successRate := round(float64(successCount)/float64(len(turns))*100, 1)
	tokens := len(turns) * tokensPerTurn
	cost := round(float64(tokens)*costPerToken, 3)
	api := last.API
	if api == "" {
		api = "inconnu"
	}

	return models.StatsSummary{
		Executions:    len(turns),
		AvgDuration:   formatFloat(round(totalDuration/float64(len(turns)), 2)) + "s",
		LastExecution: last.Timestamp.Format("02/01/2006 15:04"),
		SuccessRate:   formatFloat(successRate) + "%",
		Tokens:        tokens,
		Cost:          formatFloat(cost) + "$",
		API:           api,
		State:         state,
	}
}

// RecentTimeline projects the last k turns to {time-of-day, duration,
// success} entries, oldest first.
func (a *Aggregator) RecentTimeline(agentID int64, k int) []models.TimelinePoint {
	if k <= 0 {
		k = DefaultTimelineSize
	}
	turns := a.logs.ReadAll(agentID)
	if len(turns) > k {
		turns = turns[len(turns)-k:]
	}
	timeline := make([]models.TimelinePoint, 0, len(turns))
	for _, turn := range turns {
		timeline = append(timeline, models.TimelinePoint{
			Heure:    turn.Timestamp.Format("15:04"),
			Duration: turn.Duration,
			Success:  turn.Success,
		})
	}
	return timeline
}

// HourlyActivity counts turns per hour-of-day label, sorted by label.
func (a *Aggregator) HourlyActivity(agentID int64) models.ActivityHistogram {
	counts := make(map[string]int)
	for _, turn := range a.logs.ReadAll(agentID) {
		counts[hourLabel(turn.Timestamp.Hour())]++
	}

	labels := sortedKeys(counts)
	data := make([]int, 0, len(labels))
	for _, label := range labels {
		data = append(data, counts[label])
	}
	return models.ActivityHistogram{Labels: labels, Data: data}
}

// HourlyPerformance returns the mean call duration per hour-of-day bucket,
// sorted by label.
func (a *Aggregator) HourlyPerformance(agentID int64) []models.PerformancePoint {
	durations := make(map[string][]float64)
	for _, turn := range a.logs.ReadAll(agentID) {
		label := hourLabel(turn.Timestamp.Hour())
		durations[label] = append(durations[label], turn.Duration)
	}

	points := make([]models.PerformancePoint, 0, len(durations))
	for _, label := range sortedKeys(durations) {
		var total float64
		for _, d := range durations[label] {
			total += d
		}
		points = append(points, models.PerformancePoint{
			Time:     label,
			Duration: round(total/float64(len(durations[label])), 2),
		})
	}
	return points
}

// PeakUsage returns the busiest hour's share of all turns as a percentage.
func (a *Aggregator) PeakUsage(agentID int64) float64 {
	counts := make(map[int]int)
	total := 0
	for _, turn := range a.logs.ReadAll(agentID) {
		counts[turn.Timestamp.Hour()]++
		total++
	}
	if total == 0 {
		return 0
	}

	peakCount := 0
	for hour := 0; hour < 24; hour++ {
		if counts[hour] > peakCount {
			peakCount = counts[hour]
		}
	}
	return round(float64(peakCount)/float64(total)*100, 2)
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02dh", hour)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
