package processor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeberg.org/snonux/studycards/internal/batch"
	"codeberg.org/snonux/studycards/internal/cli"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/export"
	"codeberg.org/snonux/studycards/internal/gui"
	"codeberg.org/snonux/studycards/internal/models"
	"codeberg.org/snonux/studycards/internal/server"
)

// Batch generates one deck per entry of batchFile
func (p *Processor) Batch(ctx context.Context, batchFile string) error {
	entries, err := batch.ReadBatchFile(batchFile)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(p.out, "No inputs in %s\n", batchFile)
		return nil
	}

	runner := batch.NewRunner(p.client, &batch.Options{
		Parallel:  p.config.Batch.Parallel,
		OutputDir: p.config.Export.OutputDir,
		Format:    export.Format(p.config.Export.Format),
		DeckName:  p.config.Export.DeckName,
		Speaker:   p.exportSpeaker(),
		Notifier:  p.queue,
		Timeout:   p.config.Remote.Timeout,
		Logger:    p.logger,
	})

	fmt.Fprintf(p.out, "Processing %d inputs from %s...\n", len(entries), batchFile)
	summary, err := runner.Run(ctx, entries)
	if summary != nil {
		summary.Print(p.out)
	}
	return err
}

// Serve runs the collaborator HTTP service over the configured model backend
func (p *Processor) Serve(ctx context.Context) error {
	if p.config.Backend.Kind == "remote" {
		return fmt.Errorf("serve needs a model backend: use --backend openai or --backend gemini")
	}
	backend, ok := p.client.(server.Backend)
	if !ok {
		return fmt.Errorf("backend %s cannot be served", p.config.Backend.Kind)
	}

	opts := server.DefaultOptions()
	opts.Addr = p.config.Server.Addr
	opts.RequestsPerSec = p.config.Server.Rate
	opts.Logger = p.logger
	srv := server.New(backend, opts)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(p.out, "Serving %s backend on http://%s (Ctrl+C to stop)\n", p.config.Backend.Kind, opts.Addr)
	return srv.ListenAndServe(ctx)
}

type statisticsResetter interface {
	ResetStatistics(ctx context.Context) error
}

// Stats prints the usage counters, resetting them first if asked
func (p *Processor) Stats(ctx context.Context, reset bool) error {
	if reset {
		resetter, ok := p.client.(statisticsResetter)
		if !ok {
			return fmt.Errorf("the configured backend cannot reset statistics")
		}
		if err := resetter.ResetStatistics(ctx); err != nil {
			return err
		}
		fmt.Fprintln(p.out, "Statistics reset successfully")
	}

	s, err := p.client.FetchStatistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Flashcards generated: %d\n", s.TotalFlashcardsGenerated)
	fmt.Fprintf(p.out, "Texts processed:      %d\n", s.TotalTextsProcessed)
	fmt.Fprintf(p.out, "Images processed:     %d\n", s.TotalImagesProcessed)
	return nil
}

// Export writes a saved result as an Anki package or CSV file. An existing
// directory as outputPath gets a file name derived from the first card.
func (p *Processor) Export(ctx context.Context, resultFile, outputPath string) error {
	result, err := loadResult(resultFile)
	if err != nil {
		return err
	}

	format := export.FormatFromPath(outputPath)
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		format = export.Format(p.config.Export.Format)
		outputPath = filepath.Join(outputPath, export.DefaultFileName(result, format))
	}

	n, err := export.Deck(ctx, result, &export.Options{
		OutputPath: outputPath,
		Format:     format,
		DeckName:   p.config.Export.DeckName,
		Speaker:    p.exportSpeaker(),
		Logger:     p.logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Exported %d cards to %s\n", n, outputPath)
	return nil
}

// exportResult writes result into the configured output directory
func (p *Processor) exportResult(ctx context.Context, result *deck.Result) error {
	if err := os.MkdirAll(p.config.Export.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	format := export.Format(p.config.Export.Format)
	outputPath := filepath.Join(p.config.Export.OutputDir, export.DefaultFileName(result, format))

	n, err := export.Deck(ctx, result, &export.Options{
		OutputPath: outputPath,
		Format:     format,
		DeckName:   p.config.Export.DeckName,
		Speaker:    p.exportSpeaker(),
		Logger:     p.logger,
	})
	if err != nil {
		return err
	}
	p.queue.Success(fmt.Sprintf("Exported %d cards to %s", n, outputPath))
	return nil
}

// Models lists the OpenAI models available to the configured key
func (p *Processor) Models(ctx context.Context) error {
	lister := models.NewLister(cli.GetOpenAIKey(), p.config.Backend.OpenAIBaseURL)
	return lister.ListAvailableModels(ctx, p.out)
}

// GUI launches the desktop application
func (p *Processor) GUI(ctx context.Context) error {
	app := gui.New(&gui.Config{
		Client:    p.client,
		Synth:     p.synth,
		Player:    p.player,
		Queue:     p.queue,
		Speaker:   p.exportSpeaker(),
		OutputDir: p.config.Export.OutputDir,
		DeckName:  p.config.Export.DeckName,
		Format:    export.Format(p.config.Export.Format),
		Timeout:   p.config.Remote.Timeout,
		Logger:    p.logger,
	})
	app.Run()
	return nil
}
