package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/saldo/loader"
)

// DoctorCmd provides doctor utilities for debugging datasets.
type DoctorCmd struct {
	Dump   DumpCmd   `cmd:"" help:"Dump the decoded dataset as Go values."`
	Bounds BoundsCmd `cmd:"" help:"Show the nested-set bounds of every category."`
}

// DumpCmd prints the decoded dataset and the effective preferences.
type DumpCmd struct {
	File         string `help:"Dataset file to decode (default --data)." arg:"" optional:"" type:"path"`
	Includes     bool   `help:"Merge included files before dumping."`
	IncludeEmpty bool   `help:"Include zero-valued fields."`
}

func (cmd *DumpCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "doctor dump")
	if err != nil {
		return err
	}
	defer s.finish()

	filename := cmd.File
	if filename == "" {
		filename = globals.Data
	}

	opts := []loader.Option{loader.WithLogger(s.logger)}
	if cmd.Includes {
		opts = append(opts, loader.WithFollowIncludes())
	}
	result, err := loader.New(opts...).Load(s.ctx, filename)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	reprOpts := []repr.Option{repr.Indent("  ")}
	if !cmd.IncludeEmpty {
		reprOpts = append(reprOpts, repr.OmitEmpty(true))
	}
	_, _ = fmt.Fprintln(ctx.Stdout, repr.String(result.Dataset, reprOpts...))
	_, _ = fmt.Fprintln(ctx.Stdout, repr.String(result.Preferences, reprOpts...))
	return nil
}

// BoundsCmd prints the category tree with its nested-set bounds.
type BoundsCmd struct{}

func (cmd *BoundsCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := globals.start(ctx, "doctor bounds")
	if err != nil {
		return err
	}
	defer s.finish()

	result, err := s.load(true)
	if err != nil {
		return s.fail(err, "failed to load dataset")
	}

	t := newTable("category", "id", "left", "right", "level", "parent")
	for _, c := range result.Book.Categories.Categories() {
		t.add(strings.Repeat("  ", c.Level)+c.Name,
			fmt.Sprint(c.ID), fmt.Sprint(c.Left), fmt.Sprint(c.Right), fmt.Sprint(c.Level), fmt.Sprint(c.ParentID))
	}
	t.render(ctx.Stdout)
	return nil
}
