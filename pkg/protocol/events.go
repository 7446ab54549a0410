package protocol

// WebSocket event names pushed from server to client.
const (
	EventCron          = "cron"
	EventDevicePairReq = "device.pair.requested"
	EventDevicePairRes = "device.pair.resolved"
)
