package sink

import (
	"fmt"
	"os/exec"
)

// FFmpegRTMPFactory returns a CommandFactory that republishes raw BGR24
// frames to "{rtmpServer}/{streamID}" via ffmpeg, the default wiring used
// by cmd/engine. The actual RTMP republication process is an external
// collaborator (spec section 1); this is reference glue only — any
// CommandFactory can be substituted.
func FFmpegRTMPFactory(rtmpServer, streamID string, width, height int, fps float64) CommandFactory {
	return func() *exec.Cmd {
		url := fmt.Sprintf("%s/%s", rtmpServer, streamID)
		return exec.Command("ffmpeg",
			"-y",
			"-f", "rawvideo",
			"-pixel_format", "bgr24",
			"-video_size", fmt.Sprintf("%dx%d", width, height),
			"-framerate", fmt.Sprintf("%.2f", fps),
			"-i", "pipe:0",
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-f", "flv",
			url,
		)
	}
}
