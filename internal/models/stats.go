package models

// Agent states exposed by the stats summary. The vocabulary is French
// because the dashboard consuming these payloads expects it verbatim.
const (
	StateActive   = "actif"
	StateError    = "erreur"
	StateInactive = "inactif"
)

// StatsSummary is a read-time projection over an agent's chat turns.
// Nothing here is stored; it is recomputed from the log on every request.
type StatsSummary struct {
	Executions    int    `json:"executions"`
	AvgDuration   string `json:"temps_moyen"`
	LastExecution string `json:"derniere_execution"`
	SuccessRate   string `json:"taux_succes"`
	Tokens        int    `json:"tokens"`
	Cost          string `json:"cout"`
	API           string `json:"api"`
	State         string `json:"etat"`
}

// TimelinePoint is one entry of the last-N realtime view.
type TimelinePoint struct {
	Heure    string  `json:"heure"`
	Duration float64 `json:"duration"`
	Success  bool    `json:"success"`
}

// ActivityHistogram buckets turns by hour-of-day label, sorted by label.
type ActivityHistogram struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// PerformancePoint is the mean call duration for one hour-of-day bucket.
type PerformancePoint struct {
	Time     string  `json:"time"`
	Duration float64 `json:"duration"`
}
