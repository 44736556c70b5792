package dto

type AnalyticsSnapshot struct {
	TotalConversations int64            `json:"totalConversations"`
	TotalMessages      int64            `json:"totalMessages"`
	KBQueries          int64            `json:"kbQueries"`
	KBMatches          int64            `json:"kbMatches"`
	HandoversSuggested int64            `json:"handoversSuggested"`
	HandoversCompleted int64            `json:"handoversCompleted"`
	ProviderFailures   int64            `json:"providerFailures"`
	Latencies          []int64          `json:"latencies"`
	ProviderCounts     map[string]int64 `json:"providerCounts"`
}

type MetricsResponse struct {
	TotalTurns     int64             `json:"totalTurns"`
	LastLatencyMs  int64             `json:"lastLatencyMs"`
	ActiveSessions int               `json:"activeSessions"`
	KBVersion      uint64            `json:"kbVersion"`
	KBEntries      int               `json:"kbEntries"`
	Provider       string            `json:"provider"`
	Analytics      AnalyticsSnapshot `json:"analytics"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}
