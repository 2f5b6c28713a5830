// Package display formats the console output shown at the end of a scan.
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Found 2 duplicated libraries in /opt/app/lib",
//	    Message:    "14 jar files scanned (mode: adjacent)",
//	    Files:      []string{"guava-31.1.jar", "guava-32.0.jar"},
//	    Suggestion: "Keep one version of each library",
//	}
//	warning.Display(os.Stdout, true)
//
// For a finished run, Summary picks between the warning block and a one-line
// success message:
//
//	display.Summary(os.Stdout, summary, cfg.LogPath(), useColor)
//
// # Colors
//
// Colors come from fatih/color and are forced on or off by the caller's
// useColor argument, so output to files and buffers stays plain:
//   - Yellow for warnings
//   - Green for the success check mark
package display
