package processor

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/review"
)

const reviewHelp = `Commands:
  <enter>, f   flip the card
  n, p         next or previous card
  j N          jump to card N
  a            read the answer aloud
  s            stop reading
  l            list all cards
  x            export the deck
  q            quit`

// Review opens a saved result for review
func (p *Processor) Review(ctx context.Context, resultFile string) error {
	result, err := loadResult(resultFile)
	if err != nil {
		return err
	}
	return p.review(ctx, result)
}

// review runs the interactive terminal review until quit or end of input
func (p *Processor) review(ctx context.Context, result *deck.Result) error {
	session := review.New(result, p.newAudioSession(), p.logger)
	defer session.Close()

	if session.Empty() {
		fmt.Fprintln(p.out, "No flashcards to review. Generate some with `studycards text` or `studycards image`.")
		return nil
	}

	fmt.Fprintln(p.out)
	p.printCounters(session.Counters(), session.Len())
	fmt.Fprintln(p.out, "Type ? for help.")

	session.OnChange(p.printView)
	if view, err := session.Current(); err == nil {
		p.printView(view)
	}

	scanner := bufio.NewScanner(p.in)
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := p.reviewCommand(ctx, session, result, strings.TrimSpace(scanner.Text())); quit {
			return nil
		}
	}
}

func (p *Processor) reviewCommand(ctx context.Context, session *review.Session, result *deck.Result, line string) bool {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}

	switch cmd {
	case "", "f":
		session.Flip()
	case "n":
		if !session.Next() {
			fmt.Fprintln(p.out, "Already at the last card.")
		}
	case "p":
		if !session.Previous() {
			fmt.Fprintln(p.out, "Already at the first card.")
		}
	case "j":
		if len(fields) != 2 {
			fmt.Fprintln(p.out, "Usage: j N")
			break
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(p.out, "Not a card number: %s\n", fields[1])
			break
		}
		if err := session.JumpTo(n - 1); err != nil {
			fmt.Fprintf(p.out, "No card %d (1..%d)\n", n, session.Len())
		}
	case "a":
		if err := session.ReadCurrentAloud(ctx); err != nil {
			fmt.Fprintf(p.out, "Cannot read aloud: %v\n", err)
		}
	case "s":
		session.StopReading()
	case "l":
		for i, card := range session.Cards() {
			fmt.Fprintf(p.out, "%3d. %s\n", i+1, card.Question)
		}
	case "x":
		if err := p.exportResult(ctx, result); err != nil {
			fmt.Fprintf(p.out, "Export failed: %v\n", err)
		}
	case "q", "quit", "exit":
		return true
	case "?", "h", "help":
		fmt.Fprintln(p.out, reviewHelp)
	default:
		fmt.Fprintf(p.out, "Unknown command %q. Type ? for help.\n", cmd)
	}
	return false
}

func (p *Processor) printView(view review.View) {
	fmt.Fprintf(p.out, "\n[%d/%d] Q: %s\n", view.Position+1, view.Total, view.Question)
	if view.Revealed {
		fmt.Fprintf(p.out, "      A: %s\n", view.Answer)
	}
}
