package importer

// ScanStatus is the lifecycle marker published with scan.status events.
type ScanStatus int

// Scan lifecycle states.
const (
	ScanStarted ScanStatus = iota
	ScanSuccess
	// ScanAborted is declared for the lifecycle but nothing transitions
	// into it yet; external cancellation stops a scan between batches
	// without publishing a status.
	ScanAborted
	ScanFinishedWithErrors
)

func (s ScanStatus) String() string {
	switch s {
	case ScanStarted:
		return "started"
	case ScanSuccess:
		return "success"
	case ScanAborted:
		return "aborted"
	case ScanFinishedWithErrors:
		return "finished_with_errors"
	default:
		return "unknown"
	}
}
