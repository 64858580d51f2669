//go:build windows

package export

import (
	"fmt"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// PowerPoint COM constants.
const (
	ppAdvanceUseSlideTimings = 3  // PpSlideShowAdvanceMode
	ppSaveAsMP4              = 39 // PpSaveAsFileType
	msoTrue                  = -1
	msoFalse                 = 0
)

// powerPointHost drives PowerPoint through COM automation. Each instance
// owns one application process and must be used from a single goroutine: COM
// apartments are bound to the initializing thread.
type powerPointHost struct {
	app *ole.IDispatch
}

// NewHost launches a visible PowerPoint instance. Some builds refuse
// automation entirely when the window is hidden.
func NewHost() (Host, error) {
	if err := ole.CoInitialize(0); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means the apartment was already initialized.
		if !ok || oleErr.Code() != 1 {
			return nil, fmt.Errorf("initialize COM: %w", err)
		}
	}
	unknown, err := oleutil.CreateObject("PowerPoint.Application")
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("create PowerPoint.Application: %w", err)
	}
	app, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("query IDispatch: %w", err)
	}
	if _, err := oleutil.PutProperty(app, "Visible", msoTrue); err != nil {
		app.Release()
		ole.CoUninitialize()
		return nil, fmt.Errorf("set Visible: %w", err)
	}
	return &powerPointHost{app: app}, nil
}

func (h *powerPointHost) Open(path string) (Document, error) {
	presentations, err := oleutil.GetProperty(h.app, "Presentations")
	if err != nil {
		return nil, fmt.Errorf("get Presentations: %w", err)
	}
	defer presentations.Clear()

	pres, err := oleutil.CallMethod(presentations.ToIDispatch(), "Open", path, msoFalse, msoFalse, msoTrue)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &powerPointDocument{pres: pres.ToIDispatch()}, nil
}

func (h *powerPointHost) Quit() error {
	defer func() {
		h.app.Release()
		ole.CoUninitialize()
	}()
	if _, err := oleutil.CallMethod(h.app, "Quit"); err != nil {
		return fmt.Errorf("quit PowerPoint: %w", err)
	}
	return nil
}

type powerPointDocument struct {
	pres     *ole.IDispatch
	released bool
}

func (d *powerPointDocument) SlideCount() (int, error) {
	slides, err := oleutil.GetProperty(d.pres, "Slides")
	if err != nil {
		return 0, fmt.Errorf("get Slides: %w", err)
	}
	defer slides.Clear()
	count, err := oleutil.GetProperty(slides.ToIDispatch(), "Count")
	if err != nil {
		return 0, fmt.Errorf("get slide count: %w", err)
	}
	return int(count.Val), nil
}

func (d *powerPointDocument) SetSlideTiming(slide int, seconds float64) error {
	slides, err := oleutil.GetProperty(d.pres, "Slides")
	if err != nil {
		return fmt.Errorf("get Slides: %w", err)
	}
	defer slides.Clear()
	item, err := oleutil.CallMethod(slides.ToIDispatch(), "Item", slide)
	if err != nil {
		return fmt.Errorf("slide %d: %w", slide, err)
	}
	defer item.Clear()
	transition, err := oleutil.GetProperty(item.ToIDispatch(), "SlideShowTransition")
	if err != nil {
		return fmt.Errorf("slide %d transition: %w", slide, err)
	}
	defer transition.Clear()

	t := transition.ToIDispatch()
	for _, prop := range []struct {
		name  string
		value interface{}
	}{
		{"AdvanceOnTime", msoTrue},
		{"AdvanceOnClick", msoFalse},
		{"Duration", 0.0},
		{"AdvanceTime", seconds},
	} {
		if _, err := oleutil.PutProperty(t, prop.name, prop.value); err != nil {
			return fmt.Errorf("slide %d set %s: %w", slide, prop.name, err)
		}
	}
	return nil
}

func (d *powerPointDocument) ApplyShowSettings() error {
	settings, err := oleutil.GetProperty(d.pres, "SlideShowSettings")
	if err != nil {
		return fmt.Errorf("get SlideShowSettings: %w", err)
	}
	defer settings.Clear()
	s := settings.ToIDispatch()
	if _, err := oleutil.PutProperty(s, "AdvanceMode", ppAdvanceUseSlideTimings); err != nil {
		return fmt.Errorf("set AdvanceMode: %w", err)
	}
	if _, err := oleutil.PutProperty(s, "ShowWithAnimation", msoTrue); err != nil {
		return fmt.Errorf("set ShowWithAnimation: %w", err)
	}
	if _, err := oleutil.PutProperty(s, "ShowWithNarration", msoTrue); err != nil {
		return fmt.Errorf("set ShowWithNarration: %w", err)
	}
	return nil
}

func (d *powerPointDocument) SaveCopyAs(path string) error {
	if _, err := oleutil.CallMethod(d.pres, "SaveCopyAs", path); err != nil {
		return fmt.Errorf("SaveCopyAs %s: %w", path, err)
	}
	return nil
}

func (d *powerPointDocument) Save() error {
	if _, err := oleutil.CallMethod(d.pres, "Save"); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (d *powerPointDocument) StartExport(path string, opts ExportOptions) error {
	useTimings := msoFalse
	if opts.UseTimings {
		useTimings = msoTrue
	}
	if _, err := oleutil.CallMethod(d.pres, "CreateVideo",
		path,
		useTimings,
		opts.DefaultSlideSeconds,
		opts.VerticalResolution,
		opts.FramesPerSecond,
		opts.Quality,
	); err != nil {
		return fmt.Errorf("CreateVideo %s: %w", path, err)
	}
	return nil
}

func (d *powerPointDocument) ExportStatus() (ExportStatus, error) {
	status, err := oleutil.GetProperty(d.pres, "CreateVideoStatus")
	if err != nil {
		return StatusNone, fmt.Errorf("get CreateVideoStatus: %w", err)
	}
	return ExportStatus(status.Val), nil
}

func (d *powerPointDocument) SaveAsVideo(path string) error {
	if _, err := oleutil.CallMethod(d.pres, "SaveAs", path, ppSaveAsMP4); err != nil {
		return fmt.Errorf("SaveAs MP4 %s: %w", path, err)
	}
	return nil
}

func (d *powerPointDocument) MarkSaved() error {
	if _, err := oleutil.PutProperty(d.pres, "Saved", msoTrue); err != nil {
		return fmt.Errorf("mark saved: %w", err)
	}
	return nil
}

// Close closes the presentation. The COM reference is released only once the
// close succeeds so a retry after MarkSaved still has a live object.
func (d *powerPointDocument) Close() error {
	if d.released {
		return nil
	}
	if _, err := oleutil.CallMethod(d.pres, "Close"); err != nil {
		return fmt.Errorf("close presentation: %w", err)
	}
	d.pres.Release()
	d.released = true
	return nil
}
