package waf

// ResultsLogger is where the processors write the high level results of a run.
type ResultsLogger interface {
	IPSetSynced(environment string, ipSetID string, result SyncResult)
	ProcessorFailed(environment string, processor string, scope string, err error)
}
