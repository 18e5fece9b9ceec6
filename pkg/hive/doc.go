/*
Package hive is the public entry point for read-only access to Windows
registry hive files, including transaction log replay.

# Quick Start

Open a hive and look up a value:

	h, err := hive.Open("SYSTEM", hive.OpenOptions{})
	if err != nil {
	    log.Fatal(err)
	}
	defer h.Close()

	node, _ := h.Find(`ControlSet001\Services\Tcpip\Parameters`)
	v, _ := h.GetValue(node, "Hostname")
	name, _ := h.ValueString(v, hive.ReadOptions{})

# Transaction Logs

Hives captured from live systems are often dirty: the primary file lags the
in-memory state and the adjacent .LOG1/.LOG2 files hold the missing writes.
OpenWithLogs replays them before parsing and reports what happened:

	h, err := hive.OpenWithLogs("SYSTEM", "SYSTEM.LOG1", "SYSTEM.LOG2", hive.OpenOptions{})
	if err != nil {
	    log.Fatal(err)
	}
	defer h.Close()

	for _, lr := range h.ReplayReport().Logs {
	    fmt.Printf("%s: %s %s\n", lr.Path, lr.State, lr.Reason)
	}

A stale, legacy-format, or unreadable log never fails the open; it degrades
the result and is recorded in the report.

# Robustness

Hives from forensic images are frequently damaged. The reader bounds every
access, truncates indexing at the first misaligned bin, and with
OpenOptions.Tolerant returns partial data for truncated values instead of
failing. CollectDiagnostics records each such condition for review.
*/
package hive
