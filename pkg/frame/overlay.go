package frame

import "fmt"

// statusPanelLines formats the adaptive status/reasons/worker-count/fps
// panel text (spec section 4.3 step 5), independent of the drawing
// backend so it stays covered by plain unit tests.
func statusPanelLines(out Output) []string {
	lines := []string{out.Status.String()}
	for _, r := range out.Reasons {
		lines = append(lines, string(r))
	}
	lines = append(lines, fmt.Sprintf("workers: %d", out.WorkerCount))
	lines = append(lines, fmt.Sprintf("fps: %.1f", out.FPS))
	return lines
}

// statusPanelColor returns the BGR color the panel's headline should use,
// matching the source's green-for-safe/red-for-unsafe convention.
func statusPanelColor(status Status) [3]byte {
	if status == StatusUnsafe {
		return colorUnsafe
	}
	return colorSafe
}
