// Quaestor is a forensic evidence integrity ledger and analytics engine.
//
// It archives digital artifacts under content-addressed, encrypted storage,
// maintains an append-only chain of custody for every artifact, and runs
// forensic analytics (fraud pattern detection, timeline reconstruction,
// cross-stream correlation) over investigation data.
//
// Usage:
//
//	# Archive files into a case
//	quaestor archive --case CASE-2026-001 ./exhibits/*.pdf
//
//	# Verify a record's integrity
//	quaestor verify --id <evidence-id> --actor examiner-1
//
//	# Summarize a case
//	quaestor summary --case CASE-2026-001
//
//	# Run fraud analysis over a transaction dump
//	quaestor analyze fraud --input transactions.json
//
//	# Watch an intake directory and run the scheduled integrity sweep
//	quaestor watch
package main

func main() {
	Execute()
}
