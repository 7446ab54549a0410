package protocol

// RPC method names routed by the MethodRouter.
const (
	MethodConnect              = "connect"
	MethodHealth               = "health"
	MethodStatus               = "status"
	MethodBrowserPairingStatus = "browser.pairing.status"

	MethodPairingRequest = "pairing.request"
	MethodPairingApprove = "pairing.approve"
	MethodPairingList    = "pairing.list"
	MethodPairingRevoke  = "pairing.revoke"

	MethodCronList   = "cron.list"
	MethodCronAdd    = "cron.add"
	MethodCronUpdate = "cron.update"
	MethodCronRemove = "cron.remove"
	MethodCronRun    = "cron.run"
	MethodCronRuns   = "cron.runs"
	MethodCronStatus = "cron.status"

	MethodSchedulerStatus = "scheduler.status"
)
