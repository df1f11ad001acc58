package eventpubsub

const (
	RecommendationCompletedEvent = "RecommendationCompletedEvent"
	TaskTerminalEvent            = "TaskTerminalEvent"
)
