package export

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// APKGGenerator creates Anki package files (.apkg)
type APKGGenerator struct {
	deckName     string
	deckID       int64
	modelID      int64
	notes        []Note
	renderer     *Renderer
	mediaFiles   map[string]int // media filename to its number inside the package
	mediaCounter int
}

// NewAPKGGenerator creates a generator for one deck
func NewAPKGGenerator(deckName string) *APKGGenerator {
	now := time.Now().UnixMilli()
	return &APKGGenerator{
		deckName:   deckName,
		deckID:     now,
		modelID:    now + 1,
		renderer:   NewRenderer(),
		mediaFiles: make(map[string]int),
	}
}

// AddNote adds a note to the deck
func (g *APKGGenerator) AddNote(note Note) {
	g.notes = append(g.notes, note)
}

// Len returns the number of notes added
func (g *APKGGenerator) Len() int {
	return len(g.notes)
}

// Generate writes the .apkg file to outputPath
func (g *APKGGenerator) Generate(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "studycards_apkg_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// media first: the note fields reference the numbered files
	if err := g.copyMediaFiles(tempDir); err != nil {
		return fmt.Errorf("failed to copy media files: %w", err)
	}
	if err := g.createMediaMapping(tempDir); err != nil {
		return fmt.Errorf("failed to create media mapping: %w", err)
	}

	if err := g.createDatabase(filepath.Join(tempDir, "collection.anki2")); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := createZipPackage(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}
	return nil
}

func (g *APKGGenerator) createDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range schema {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	if err := g.insertCollection(tx); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := g.insertNotes(tx); err != nil {
		return fmt.Errorf("failed to insert notes: %w", err)
	}
	return tx.Commit()
}

var schema = []string{
	`CREATE TABLE col (
		id integer PRIMARY KEY, crt integer NOT NULL, mod integer NOT NULL,
		scm integer NOT NULL, ver integer NOT NULL, dty integer NOT NULL,
		usn integer NOT NULL, ls integer NOT NULL, conf text NOT NULL,
		models text NOT NULL, decks text NOT NULL, dconf text NOT NULL, tags text NOT NULL
	)`,
	`CREATE TABLE notes (
		id integer PRIMARY KEY, guid text NOT NULL, mid integer NOT NULL,
		mod integer NOT NULL, usn integer NOT NULL, tags text NOT NULL,
		flds text NOT NULL, sfld text NOT NULL, csum integer NOT NULL,
		flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE cards (
		id integer PRIMARY KEY, nid integer NOT NULL, did integer NOT NULL,
		ord integer NOT NULL, mod integer NOT NULL, usn integer NOT NULL,
		type integer NOT NULL, queue integer NOT NULL, due integer NOT NULL,
		ivl integer NOT NULL, factor integer NOT NULL, reps integer NOT NULL,
		lapses integer NOT NULL, left integer NOT NULL, odue integer NOT NULL,
		odid integer NOT NULL, flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE revlog (
		id integer PRIMARY KEY, cid integer NOT NULL, usn integer NOT NULL,
		ease integer NOT NULL, ivl integer NOT NULL, lastIvl integer NOT NULL,
		factor integer NOT NULL, time integer NOT NULL, type integer NOT NULL
	)`,
	`CREATE TABLE graves (usn integer NOT NULL, oid integer NOT NULL, type integer NOT NULL)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
}

func (g *APKGGenerator) insertCollection(tx *sql.Tx) error {
	now := time.Now().Unix()

	deckConfig := func(id int64, name, desc string) map[string]interface{} {
		return map[string]interface{}{
			"id": id, "name": name, "mod": now, "desc": desc,
			"collapsed": false, "dyn": 0, "conf": 1, "usn": 0,
			"newToday": []int{0, 0}, "revToday": []int{0, 0},
			"lrnToday": []int{0, 0}, "timeToday": []int{0, 0},
			"browserCollapsed": false, "extendNew": 10, "extendRev": 50,
		}
	}
	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", ""),
		strconv.FormatInt(g.deckID, 10): deckConfig(g.deckID, g.deckName, "Flashcards generated by studycards"),
	}

	models := map[string]interface{}{
		strconv.FormatInt(g.modelID, 10): g.noteType(),
	}

	conf := map[string]interface{}{
		"nextPos": 1, "estTimes": true, "activeDecks": []int64{1},
		"sortType": "noteFld", "sortBackwards": false, "addToCur": true,
		"curDeck": 1, "newSpread": 0, "dueCounts": true, "collapseTime": 1200,
		"timeLim": 0, "schedVer": 1, "curModel": strconv.FormatInt(g.modelID, 10),
		"dayLearnFirst": false,
	}

	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id": 1, "name": "Default", "dyn": 0,
			"new": map[string]interface{}{
				"delays": []int{1, 10}, "ints": []int{1, 4, 7}, "initialFactor": 2500,
				"perDay": 20, "order": 1, "bury": true, "separate": true,
			},
			"lapse": map[string]interface{}{
				"delays": []int{10}, "mult": 0, "minInt": 1, "leechFails": 8, "leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay": 100, "ease4": 1.3, "fuzz": 0.05, "maxIvl": 36500,
				"ivlFct": 1, "bury": true, "minSpace": 1,
			},
			"timer": 0, "maxTaken": 60, "usn": 0, "mod": now,
			"autoplay": true, "replayq": true,
		},
	}

	encoded := make([]string, 0, 4)
	for _, v := range []interface{}{conf, models, decks, dconf} {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		encoded = append(encoded, string(data))
	}

	_, err := tx.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver
		0,        // dty
		0,        // usn
		0,        // ls
		encoded[0], encoded[1], encoded[2], encoded[3],
		"{}", // tags
	)
	return err
}

// noteType is a Basic model with an optional audio field on the back
func (g *APKGGenerator) noteType() map[string]interface{} {
	field := func(name string, ord, size int) map[string]interface{} {
		return map[string]interface{}{
			"name": name, "ord": ord, "sticky": false, "rtl": false,
			"font": "Arial", "size": size, "media": []string{},
		}
	}

	return map[string]interface{}{
		"id":        g.modelID,
		"name":      "Study Card (studycards)",
		"type":      0,
		"mod":       time.Now().Unix(),
		"usn":       -1,
		"sortf":     0,
		"did":       g.deckID,
		"req":       [][]interface{}{{0, "all", []int{0}}},
		"vers":      []int{},
		"tags":      []string{},
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}",
		"latexPost": "\\end{document}",
		"flds": []map[string]interface{}{
			field("Question", 0, 22),
			field("Answer", 1, 20),
			field("Audio", 2, 16),
		},
		"tmpls": []map[string]interface{}{
			{
				"name":  "Card 1",
				"ord":   0,
				"qfmt":  `<div class="question">{{Question}}</div>`,
				"afmt":  "{{FrontSide}}\n\n<hr id=\"answer\">\n\n<div class=\"answer\">{{Answer}}</div>\n{{#Audio}}<div class=\"audio\">{{Audio}}</div>{{/Audio}}",
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
		},
		"css": cardCSS,
	}
}

const cardCSS = `.card {
  font-family: Arial, sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: white;
}

.question {
  font-size: 24px;
  font-weight: bold;
  color: #2c3e50;
  margin: 20px 0;
}

.answer {
  margin: 20px 0;
}

.audio {
  margin: 15px 0;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`

func (g *APKGGenerator) insertNotes(tx *sql.Tx) error {
	now := time.Now()

	noteStmt, err := tx.Prepare(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer noteStmt.Close()

	cardStmt, err := tx.Prepare(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cardStmt.Close()

	for i, note := range g.notes {
		noteID := now.UnixMilli() + int64(i*2)
		cardID := noteID + 1

		audioField := ""
		if name := mediaName(note); name != "" {
			if _, ok := g.mediaFiles[name]; ok {
				audioField = fmt.Sprintf("[sound:%s]", name)
			}
		}

		// fields are separated by ASCII 31
		fields := strings.Join([]string{
			g.renderer.Render(note.Question),
			g.renderer.Render(note.Answer),
			audioField,
		}, "\x1f")

		guid := "sc_" + note.ID
		if note.ID == "" {
			guid = fmt.Sprintf("sc_%d_%d", now.Unix(), i)
		}

		_, err := noteStmt.Exec(
			noteID,        // id
			guid,          // guid
			g.modelID,     // mid
			now.Unix(),    // mod
			-1,            // usn
			"studycards",  // tags
			fields,        // flds
			note.Question, // sfld
			0,             // csum
			0,             // flags
			"",            // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		_, err = cardStmt.Exec(
			cardID,     // id
			noteID,     // nid
			g.deckID,   // did
			0,          // ord
			now.Unix(), // mod
			-1,         // usn
			0,          // type (new)
			0,          // queue (new)
			i+1,        // due: position among new cards, keeps review order
			0, 0, 0, 0, 0, 0, 0, 0, // ivl factor reps lapses left odue odid flags
			"", // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
	}
	return nil
}

// mediaName is the name a note's audio file gets inside the package
func mediaName(note Note) string {
	if note.AudioFile == "" {
		return ""
	}
	base := filepath.Base(note.AudioFile)
	if note.ID == "" || strings.HasPrefix(base, note.ID) {
		return base
	}
	return note.ID + "_" + base
}

func (g *APKGGenerator) copyMediaFiles(tempDir string) error {
	for _, note := range g.notes {
		name := mediaName(note)
		if name == "" || !fileExists(note.AudioFile) {
			continue
		}
		if _, exists := g.mediaFiles[name]; exists {
			continue
		}

		target := filepath.Join(tempDir, strconv.Itoa(g.mediaCounter))
		if err := copyFile(note.AudioFile, target); err != nil {
			return fmt.Errorf("failed to copy audio file %s: %w", note.AudioFile, err)
		}
		g.mediaFiles[name] = g.mediaCounter
		g.mediaCounter++
	}
	return nil
}

// createMediaMapping writes the number to filename map Anki reads on import
func (g *APKGGenerator) createMediaMapping(tempDir string) error {
	mapping := make(map[string]string, len(g.mediaFiles))
	for name, num := range g.mediaFiles {
		mapping[strconv.Itoa(num)] = name
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func createZipPackage(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addToZip(archive, filepath.Join(tempDir, entry.Name()), entry.Name()); err != nil {
			return err
		}
	}

	if err := archive.Close(); err != nil {
		return err
	}
	return zipFile.Close()
}

func addToZip(archive *zip.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer, err := archive.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, file)
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
