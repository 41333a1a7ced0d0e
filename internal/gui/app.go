package gui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/studycards/internal"
	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/export"
	"codeberg.org/snonux/studycards/internal/generation"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
	"codeberg.org/snonux/studycards/internal/review"
)

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window
	tabs   *container.AppTabs

	// Generator view
	textInput      *StudyTextEntry
	imageDisplay   *ImageDisplay
	generateButton *ttwidget.Button
	pickImageBtn   *ttwidget.Button
	clearImageBtn  *ttwidget.Button
	statusLabel    *widget.Label

	// Review view and side panels
	reviewPanel   *ReviewPanel
	statsPanel    *StatsPanel
	notifications *NotificationStrip
	exportButton  *ttwidget.Button
	helpButton    *ttwidget.Button

	reviewTab *container.TabItem

	controller *generation.Controller

	// State management, guarded by mu
	upload     *image.Upload
	lastResult *deck.Result

	config *Config
	logger *slog.Logger

	// Background processing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// Config holds GUI application configuration
type Config struct {
	Client  remote.Client
	Synth   audio.Synthesizer // nil disables reading aloud
	Player  audio.Player
	Queue   *notify.Queue
	Speaker audio.Provider // audio for exported decks, may be nil

	OutputDir string
	DeckName  string
	Format    export.Format
	Timeout   time.Duration
	Logger    *slog.Logger
}

// New creates a new GUI application
func New(config *Config) *Application {
	if config.Queue == nil {
		config.Queue = notify.New(nil)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DeckName == "" {
		config.DeckName = export.DefaultDeckName
	}
	if config.Format == "" {
		config.Format = export.FormatAPKG
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Application{
		app:    app.NewWithID("org.codeberg.snonux.studycards"),
		config: config,
		logger: config.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	a.controller = generation.NewController(config.Client, &generation.Options{
		Notifier: config.Queue,
		OnResult: a.onResult,
		Timeout:  config.Timeout,
		Logger:   config.Logger,
	})
	a.controller.OnChange(func(state generation.State) {
		fyne.Do(func() { a.onGenerationState(state) })
	})

	a.setupUI()
	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("studycards v%s - Flashcard Generator", internal.Version))
	a.window.Resize(fyne.NewSize(900, 700))

	a.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("Generate", theme.DocumentCreateIcon(), a.generatorView()),
	)
	a.reviewPanel = NewReviewPanel(a.onReadAloud)
	a.reviewTab = container.NewTabItemWithIcon("Review", theme.VisibilityIcon(), a.reviewPanel)
	a.statsPanel = NewStatsPanel(a.ctx, a.config.Client, a.config.Queue, a.window, a.logger)
	a.tabs.Append(a.reviewTab)
	a.tabs.Append(container.NewTabItemWithIcon("Statistics", theme.InfoIcon(), a.statsPanel))
	a.tabs.OnSelected = func(tab *container.TabItem) {
		if tab.Text == "Statistics" {
			a.statsPanel.Refresh()
		}
	}

	a.exportButton = ttwidget.NewButtonWithIcon("", theme.UploadIcon(), a.onExport)
	a.exportButton.Disable()
	a.helpButton = ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)
	toolbar := container.NewHBox(a.exportButton, a.helpButton)

	a.notifications = NewNotificationStrip(a.config.Queue)
	a.statusLabel = widget.NewLabel("Ready")

	content := container.NewBorder(
		toolbar,
		container.NewVBox(widget.NewSeparator(), a.notifications, a.statusLabel),
		nil, nil,
		a.tabs,
	)

	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	a.setupTooltips()

	a.window.SetOnClosed(func() {
		a.cancel()
		a.wg.Wait()
		if s := a.reviewPanel.Session(); s != nil {
			s.Close()
		}
	})

	a.setupKeyboardShortcuts()
}

func (a *Application) generatorView() fyne.CanvasObject {
	a.textInput = NewStudyTextEntry()
	a.textInput.SetPlaceHolder("Paste study text here (at least 10 characters)... Ctrl+Enter generates, Escape leaves the field")
	a.textInput.SetOnEscape(func() { a.window.Canvas().Unfocus() })
	a.textInput.SetOnSubmit(a.onGenerate)

	a.imageDisplay = NewImageDisplay()
	a.pickImageBtn = ttwidget.NewButtonWithIcon("Choose image", theme.FileImageIcon(), a.onPickImage)
	a.clearImageBtn = ttwidget.NewButtonWithIcon("", theme.ContentClearIcon(), a.onClearImage)
	a.clearImageBtn.Disable()

	a.generateButton = ttwidget.NewButtonWithIcon("Generate flashcards", theme.ConfirmIcon(), a.onGenerate)
	a.generateButton.Importance = widget.HighImportance

	imageSection := container.NewBorder(
		widget.NewLabel("Or generate from an image:"),
		container.NewHBox(a.pickImageBtn, a.clearImageBtn),
		nil, nil,
		a.imageDisplay,
	)

	inputSplit := container.NewHSplit(
		container.NewBorder(widget.NewLabel("Study text:"), nil, nil, nil, container.NewScroll(a.textInput)),
		imageSection,
	)
	inputSplit.SetOffset(0.6)

	return container.NewBorder(nil, a.generateButton, nil, nil, inputSplit)
}

// Run starts the GUI application
func (a *Application) Run() {
	a.window.ShowAndRun()
}

// onGenerate submits the chosen image, or the text when no image is chosen
func (a *Application) onGenerate() {
	if a.controller.Busy() {
		return
	}

	a.mu.Lock()
	upload := a.upload
	a.mu.Unlock()

	req := generation.TextRequest(a.textInput.Text)
	if upload != nil {
		req = generation.ImageRequest(upload)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		// Outcomes reach the user through notifications and OnChange
		if _, err := a.controller.Submit(a.ctx, req); err != nil {
			a.logger.Debug("generation ended without result", "kind", req.Kind.String(), "error", err)
		}
	}()
}

func (a *Application) onGenerationState(state generation.State) {
	switch state {
	case generation.StateSubmitting:
		a.generateButton.Disable()
		a.pickImageBtn.Disable()
		a.updateStatus("Generating flashcards...")
	case generation.StateIdle:
		a.generateButton.Enable()
		a.pickImageBtn.Enable()
		a.updateStatus("Ready")
	}
}

// onResult runs on the submitting goroutine with every successful result
func (a *Application) onResult(result *deck.Result) {
	session := review.New(result, a.newAudioSession(), a.logger)

	a.mu.Lock()
	a.lastResult = result
	a.mu.Unlock()

	fyne.Do(func() {
		previous := a.reviewPanel.Session()
		a.reviewPanel.SetSession(session)
		if previous != nil {
			previous.Close()
		}
		a.exportButton.Enable()
		a.tabs.Select(a.reviewTab)
	})
}

func (a *Application) newAudioSession() *audio.Session {
	if a.config.Synth == nil {
		return nil
	}
	return audio.NewSession(a.config.Synth, &audio.SessionOptions{
		Notifier: a.config.Queue,
		Player:   a.config.Player,
		Logger:   a.logger,
	})
}

func (a *Application) onReadAloud() {
	session := a.reviewPanel.Session()
	if session == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := session.ReadCurrentAloud(a.ctx); err != nil {
			a.logger.Debug("read aloud ended", "error", err)
		}
	}()
}

func (a *Application) onPickImage() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(io.LimitReader(reader, image.MaxUploadBytes+1))
		if err != nil {
			a.showError(fmt.Errorf("failed to read image: %w", err))
			return
		}
		upload := image.NewUpload(reader.URI().Name(), reader.URI().MimeType(), data)
		if err := upload.Validate(); err != nil {
			a.showError(err)
			return
		}

		a.mu.Lock()
		a.upload = upload
		a.mu.Unlock()
		a.imageDisplay.SetUpload(upload)
		a.clearImageBtn.Enable()
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}))
	d.Show()
}

func (a *Application) onClearImage() {
	a.mu.Lock()
	a.upload = nil
	a.mu.Unlock()
	a.imageDisplay.Clear()
	a.clearImageBtn.Disable()
}

// onExport saves the current deck through a file dialog
func (a *Application) onExport() {
	a.mu.Lock()
	result := a.lastResult
	a.mu.Unlock()

	if result.Len() == 0 {
		dialog.ShowInformation("No Cards", "Generate some flashcards first!", a.window)
		return
	}

	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			n, err := export.Deck(a.ctx, result, &export.Options{
				OutputPath: path,
				DeckName:   a.config.DeckName,
				Speaker:    a.config.Speaker,
				Logger:     a.logger,
			})
			if err != nil {
				a.logger.Warn("export failed", "path", path, "error", err)
				a.config.Queue.Push("Export failed: "+err.Error(), notify.SeverityError)
				return
			}
			a.config.Queue.Push(fmt.Sprintf("Exported %d cards to %s", n, path), notify.SeveritySuccess)
		}()
	}, a.window)

	d.SetFileName(export.DefaultFileName(result, a.config.Format))
	if a.config.OutputDir != "" {
		if err := os.MkdirAll(a.config.OutputDir, 0755); err == nil {
			if uri, err := storage.ListerForURI(storage.NewFileURI(a.config.OutputDir)); err == nil {
				d.SetLocation(uri)
			}
		}
	}
	d.Show()
}

func (a *Application) onShowHotkeys() {
	hotkeys := `## Generate
**Ctrl+Enter** Generate from the text field  
**g** Generate  
**i** Choose image  
**Esc** Leave the text field  

## Review
**←** Previous card  
**→** Next card  
**Space / f** Flip card  
**a** Read answer aloud  
**s** Stop reading  

## Other
**x** Export deck  
**h** Show hotkeys  
**q** Quit application`

	content := widget.NewRichTextFromMarkdown(hotkeys)
	content.Wrapping = fyne.TextWrapWord

	scroll := container.NewScroll(container.NewPadded(content))
	scroll.SetMinSize(fyne.NewSize(420, 420))

	dialog.ShowCustom("Keyboard Shortcuts", "Close", scroll, a.window)
}

func (a *Application) updateStatus(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) showError(err error) {
	dialog.ShowError(err, a.window)
	a.updateStatus("Error: " + err.Error())
}

// setupTooltips sets up all tooltips after the tooltip layer has been created
func (a *Application) setupTooltips() {
	a.generateButton.SetToolTip("Generate flashcards (g, Ctrl+Enter)")
	a.pickImageBtn.SetToolTip("Choose an image (i)")
	a.clearImageBtn.SetToolTip("Use the text instead of the image")
	a.exportButton.SetToolTip("Export deck (x)")
	a.helpButton.SetToolTip("Show hotkeys (h)")
	a.reviewPanel.SetToolTips()
	a.statsPanel.SetToolTips()
}

func (a *Application) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			a.window.Canvas().Unfocus()
			return
		}
		// Keys typed into the text field are text
		if a.window.Canvas().Focused() == a.textInput {
			return
		}
		a.handleShortcutKey(ev.Name)
	})
}

// handleShortcutKey handles the actual shortcut action
func (a *Application) handleShortcutKey(key fyne.KeyName) {
	session := a.reviewPanel.Session()

	switch key {
	case fyne.KeyG:
		a.onGenerate()
	case fyne.KeyI:
		if !a.pickImageBtn.Disabled() {
			a.onPickImage()
		}
	case fyne.KeyLeft:
		if session != nil {
			session.Previous()
		}
	case fyne.KeyRight:
		if session != nil {
			session.Next()
		}
	case fyne.KeySpace, fyne.KeyF:
		if session != nil {
			session.Flip()
		}
	case fyne.KeyA:
		a.onReadAloud()
	case fyne.KeyS:
		if session != nil {
			session.StopReading()
		}
	case fyne.KeyX:
		if !a.exportButton.Disabled() {
			a.onExport()
		}
	case fyne.KeyH:
		a.onShowHotkeys()
	case fyne.KeyQ:
		a.window.Close()
	}
}
