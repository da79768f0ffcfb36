package main

import (
	"fmt"
	"io/ioutil"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/voidshard/oreasset"
)

type watchCmd struct {
	Atlases string        `help:"file the atlas literal is written to" default:"textures.h"`
	Levels  string        `help:"file the level literal is written to" default:"levels.h"`
	Settle  time.Duration `help:"wait this long after a change before exporting" default:"250ms"`
}

func (c *watchCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	log := cfg.Logger

	w, err := oreasset.NewWatcher(cfg.Root)
	if err != nil {
		return err
	}
	defer w.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	c.export(cfg, log)

	// changes usually arrive in bursts (a save writes many files), so
	// export once things go quiet
	var settle <-chan time.Time
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			log.Debug("changed", slog.String("path", path))
			settle = time.After(c.Settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", slog.String("err", err.Error()))
		case <-settle:
			settle = nil
			c.export(cfg, log)
		case <-interrupt:
			return nil
		}
	}
}

// export reloads the project & writes both literals. Failures are logged,
// the watch carries on.
func (c *watchCmd) export(cfg *oreasset.Config, log *slog.Logger) {
	p, err := oreasset.Load(cfg)
	if err != nil {
		log.Error("load failed", slog.String("err", err.Error()))
		return
	}
	defer p.Release()

	jobs := []struct {
		out   string
		array string
		pack  func(*oreasset.Project) ([]byte, error)
	}{
		{c.Atlases, cfg.AtlasArray, oreasset.ExportAtlases},
		{c.Levels, cfg.LevelArray, oreasset.ExportLevels},
	}
	for _, job := range jobs {
		data, err := job.pack(p)
		if err != nil {
			log.Error("export failed", slog.String("array", job.array), slog.String("err", err.Error()))
			continue
		}
		err = ioutil.WriteFile(job.out, []byte(oreasset.Literal(job.array, data)+"\n"), 0644)
		if err != nil {
			log.Error("write failed", slog.String("file", job.out), slog.String("err", err.Error()))
			continue
		}
		log.Info(fmt.Sprintf("exported %s", job.array), slog.String("file", job.out), slog.Int("bytes", len(data)))
	}
}
