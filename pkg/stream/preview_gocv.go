//go:build cgo
// +build cgo

package stream

import (
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// DebugPreview renders one stream's most recently processed annotated
// frame in an on-screen window, adapted from the teacher's
// pkg/miface/preview.go PreviewWindow — same dedicated-OS-thread OpenCV UI
// loop — but driven by an Engine's LatestRawFrame snapshots for whichever
// stream cmd/engine's debug flag names, instead of a single fixed webcam
// view.
type DebugPreview struct {
	window   *gocv.Window
	frameCh  chan previewFrame
	closeCh  chan struct{}
	doneCh   chan struct{}
	once     sync.Once
	initDone chan struct{}
}

type previewFrame struct {
	data          []byte
	width, height int
}

// NewDebugPreview opens a titled window on a dedicated OS thread; OpenCV UI
// calls must run pinned to one thread on Linux/X11.
func NewDebugPreview(title string) *DebugPreview {
	p := &DebugPreview{
		frameCh:  make(chan previewFrame, 1),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		initDone: make(chan struct{}),
	}
	go p.loop(title)
	<-p.initDone
	return p
}

func (p *DebugPreview) loop(title string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.window = gocv.NewWindow(title)
	close(p.initDone)

	for {
		select {
		case img := <-p.frameCh:
			mat, err := gocv.NewMatFromBytes(img.height, img.width, gocv.MatTypeCV8UC3, img.data)
			if err == nil {
				p.window.IMShow(mat)
				p.window.WaitKey(1)
				mat.Close()
			}
		case <-p.closeCh:
			p.window.Close()
			close(p.doneCh)
			return
		}
	}
}

// Show enqueues the latest annotated frame for display, dropping it if the
// window is still rendering the previous one — a stalled debug window must
// never slow the processing loop (spec section 5's backpressure policy
// applies here too, even though this sits outside the spec's own pipeline).
func (p *DebugPreview) Show(data []byte, width, height int) {
	select {
	case p.frameCh <- previewFrame{data: data, width: width, height: height}:
	default:
	}
}

// Close tears down the window.
func (p *DebugPreview) Close() {
	p.once.Do(func() {
		close(p.closeCh)
		<-p.doneCh
	})
}
