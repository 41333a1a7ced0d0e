package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/studycards/internal/notify"
)

// NotificationStrip lists the active notifications, newest at the bottom
type NotificationStrip struct {
	widget.BaseWidget

	queue *notify.Queue
	rows  *fyne.Container
}

// NewNotificationStrip creates a strip fed by queue
func NewNotificationStrip(queue *notify.Queue) *NotificationStrip {
	s := &NotificationStrip{
		queue: queue,
		rows:  container.NewVBox(),
	}
	s.ExtendBaseWidget(s)

	queue.OnChange(func(active []notify.Notification) {
		fyne.Do(func() { s.render(active) })
	})
	s.render(queue.Active())
	return s
}

// CreateRenderer implements fyne.Widget
func (s *NotificationStrip) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(s.rows)
}

func (s *NotificationStrip) render(active []notify.Notification) {
	s.rows.RemoveAll()
	for _, n := range active {
		s.rows.Add(s.row(n))
	}
	s.rows.Refresh()
}

func (s *NotificationStrip) row(n notify.Notification) fyne.CanvasObject {
	label := widget.NewLabel(n.Message)
	label.Wrapping = fyne.TextWrapWord
	label.Importance = severityImportance(n.Severity)

	id := n.ID
	dismiss := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		s.queue.Dismiss(id)
	})
	dismiss.Importance = widget.LowImportance

	return container.NewBorder(nil, nil, widget.NewIcon(severityIcon(n.Severity)), dismiss, label)
}

func severityIcon(severity notify.Severity) fyne.Resource {
	switch severity {
	case notify.SeveritySuccess:
		return theme.ConfirmIcon()
	case notify.SeverityWarning:
		return theme.WarningIcon()
	case notify.SeverityError:
		return theme.ErrorIcon()
	default:
		return theme.InfoIcon()
	}
}

func severityImportance(severity notify.Severity) widget.Importance {
	switch severity {
	case notify.SeveritySuccess:
		return widget.SuccessImportance
	case notify.SeverityWarning:
		return widget.WarningImportance
	case notify.SeverityError:
		return widget.DangerImportance
	default:
		return widget.MediumImportance
	}
}
