package patrol

import "fmt"

// ValidatePattern checks a custom patrol pattern has enough waypoints to
// scan between, mirroring start_patrol's pattern-mode guard ("need at
// least 2 waypoints").
func ValidatePattern(waypoints []Waypoint) error {
	if len(waypoints) < 2 {
		return fmt.Errorf("patrol: custom pattern needs at least 2 waypoints, got %d", len(waypoints))
	}
	return nil
}

// PreviewPattern returns the waypoint sequence a pattern or grid patrol
// would visit, without moving the camera, for UI preview purposes (spec
// section 6.2's patrol-preview-* events / preview_custom_patrol_pattern).
func PreviewPattern(waypoints []Waypoint) []Waypoint {
	out := make([]Waypoint, len(waypoints))
	copy(out, waypoints)
	return out
}

// PreviewGrid returns the waypoint sequence a grid patrol would visit.
func PreviewGrid(grid Grid, direction Direction) []Waypoint {
	return grid.Waypoints(direction)
}
