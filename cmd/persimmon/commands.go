package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/ingest"
	"github.com/poiesic/persimmon/storage"
)

func documentClass(c *cli.Context) core.Class {
	return core.DocumentClass(c.String("collection"), c.String("primary-key"))
}

// output renders a model with its timestamps folded back in.
func output(model core.Storable) core.Attributes {
	attrs := model.ToMap()
	if ts, ok := model.(core.Timestamped); ok {
		if t := ts.CreatedAt(); !t.IsZero() {
			attrs.Set(core.CreatedAtField, core.Time(t))
		}
		if t := ts.UpdatedAt(); !t.IsZero() {
			attrs.Set(core.UpdatedAtField, core.Time(t))
		}
	}
	return attrs
}

func getCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one document id")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	model, err := db.Repository().Find(c.Context, c.Args().First(), documentClass(c), c.StringSlice("fields")...)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("document %q not found in %s", c.Args().First(), c.String("collection"))
		}
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(output(model))
}

func putCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("expected a document id")
	}
	attrs, err := parseAssignments(c.Args().Tail())
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := db.Repository()
	id := c.Args().First()
	pk := c.String("primary-key")
	attrs.Delete(pk)

	var doc core.Storable
	if c.Bool("update") {
		// Load the stored key so the patch keeps its kind.
		doc, err = repo.Find(c.Context, id, documentClass(c), pk)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("document %q not found in %s", id, c.String("collection"))
			}
			return err
		}
		doc.Fill(attrs)
		err = repo.Update(c.Context, doc)
	} else {
		d := core.NewDocument(c.String("collection"), pk)
		d.Fill(attrs)
		d.Set(pk, core.String(id))
		doc = d
		err = repo.Insert(c.Context, doc)
	}
	if err != nil {
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(output(doc))
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one document id")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Repository().Delete(c.Context, c.Args().First(), documentClass(c))
}

// searchHit is one line of search output.
type searchHit struct {
	Position int             `json:"position"`
	Score    *float64        `json:"score,omitempty"`
	Document core.Attributes `json:"document"`
}

func searchCommand(c *cli.Context) error {
	q, err := buildQuery(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Repository().All(c.Context, q, documentClass(c))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	for _, item := range results.All() {
		doc := item.(*core.Document)
		hit := doc.Hit()
		line := searchHit{Position: hit.Position, Document: output(doc)}
		if hit.Scored {
			score := hit.Score
			line.Score = &score
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.ErrWriter, "%d of %d documents\n", results.Count(), results.Total())
	return nil
}

func importCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one file pattern")
	}
	strategy, err := ingest.ParseIDStrategy(c.String("id-strategy"))
	if err != nil {
		return err
	}

	var files []string
	for _, pattern := range c.Args().Slice() {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return errors.New("no files matched")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var bar *progressbar.ProgressBar
	loader, err := db.NewLoader(documentClass(c),
		ingest.WithIDStrategy(strategy),
		ingest.WithProgress(func() { _ = bar.Add(1) }),
	)
	if err != nil {
		return err
	}
	defer loader.Release()

	var total ingest.Stats
	for _, path := range files {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(c.App.ErrWriter),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Importing "+path),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(c.App.ErrWriter)
			}),
		)
		stats, err := importFile(c, loader, path)
		_ = bar.Finish()
		total.Read += stats.Read
		total.Inserted += stats.Inserted
		total.Failed += stats.Failed
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}

	return json.NewEncoder(c.App.Writer).Encode(map[string]any{
		"files":    len(files),
		"read":     total.Read,
		"inserted": total.Inserted,
		"failed":   total.Failed,
	})
}

func importFile(c *cli.Context, loader *ingest.Loader, path string) (ingest.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Stats{}, err
	}
	defer f.Close()
	return loader.Load(c.Context, f)
}
