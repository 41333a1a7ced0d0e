package gui

import (
	"bytes"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/studycards/internal/image"
)

// ImageDisplay previews the image chosen for generation
type ImageDisplay struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label
}

// NewImageDisplay creates a new image display widget
func NewImageDisplay() *ImageDisplay {
	d := &ImageDisplay{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(fyne.NewSize(200, 150))

	d.imageLabel = widget.NewLabel("No image selected")
	d.imageLabel.Alignment = fyne.TextAlignCenter

	d.container = container.NewBorder(
		nil,
		d.imageLabel,
		nil, nil,
		d.imageCanvas,
	)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// SetUpload shows upload. Formats the standard decoders do not know are
// still accepted for generation, only without a preview.
func (d *ImageDisplay) SetUpload(upload *image.Upload) {
	if !upload.Present() {
		d.Clear()
		return
	}

	label := fmt.Sprintf("%s (%s, %d KiB)", upload.Filename, upload.ContentType, len(upload.Data)/1024)
	img, _, err := stdimage.Decode(bytes.NewReader(upload.Data))
	if err != nil {
		d.imageCanvas.Image = nil
		label += ", no preview"
	} else {
		d.imageCanvas.Image = img
	}
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(label)
}

// Clear clears the display
func (d *ImageDisplay) Clear() {
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText("No image selected")
}
