package logging

const (
	operationIPSetSynced     = "AutoBlockIPSetSync"
	operationProcessorFailed = "LogProcessorFailure"
	categoryAudit            = "AutoBlockAuditLog"
)

type ipSetSyncedLogEntry struct {
	Time          string                      `json:"time"`
	OperationName string                      `json:"operationName"`
	Category      string                      `json:"category"`
	Properties    ipSetSyncedLogEntryProperty `json:"properties"`
}

type ipSetSyncedLogEntryProperty struct {
	Environment string   `json:"environment"`
	IPSetID     string   `json:"ipSetId"`
	Added       []string `json:"added"`
	Removed     []string `json:"removed"`
	Unchanged   int      `json:"unchanged"`
}

type processorFailedLogEntry struct {
	Time          string                          `json:"time"`
	OperationName string                          `json:"operationName"`
	Category      string                          `json:"category"`
	Properties    processorFailedLogEntryProperty `json:"properties"`
}

type processorFailedLogEntryProperty struct {
	Environment string `json:"environment"`
	Processor   string `json:"processor"`
	Scope       string `json:"scope"`
	Message     string `json:"message"`
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
