// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResolve/services/resolve"
	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
)

// errCheckFailed is returned when at least one expectation did not hold.
var errCheckFailed = errors.New("check failed")

var checkWatch bool

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <fixture.yaml>",
		Short: "Resolve every call in a fixture and compare with its expectation",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().BoolVar(&checkWatch, "watch", false, "Re-run whenever the fixture changes")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	svc := resolve.NewService(cfg.Resolver)
	out := newReportPrinter(cmd.OutOrStdout())

	doc, err := fixture.LoadFile(ctx, args[0])
	if err != nil {
		return err
	}
	report, err := checkDocument(ctx, svc, doc)
	if err != nil {
		return err
	}
	out.print(report)

	if !checkWatch {
		if !report.OK() {
			return errCheckFailed
		}
		return nil
	}

	watcher, err := fixture.NewWatcher(args[0], func(model *fixture.Model, err error) {
		if err != nil {
			slog.Warn("fixture reload failed", slog.String("error", err.Error()))
			out.error(err)
			return
		}
		report, err := checkDocument(ctx, svc, model.Document)
		if err != nil {
			out.error(err)
			return
		}
		out.print(report)
	}, nil)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	slog.Info("watching fixture", slog.String("path", args[0]))
	<-ctx.Done()
	return nil
}

// checkDocument loads doc as a fresh universe, checks it and unloads it.
func checkDocument(ctx context.Context, svc *resolve.Service, doc *fixture.Document) (*resolve.CheckReport, error) {
	u, err := svc.LoadUniverse(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = svc.DeleteUniverse(u.ID)
	}()
	return svc.Check(ctx, u.ID)
}

// reportPrinter writes check reports, with color on a terminal.
type reportPrinter struct {
	w     io.Writer
	pass  lipgloss.Style
	fail  lipgloss.Style
	muted lipgloss.Style
}

func newReportPrinter(w io.Writer) *reportPrinter {
	p := &reportPrinter{
		w:     w,
		pass:  lipgloss.NewStyle(),
		fail:  lipgloss.NewStyle(),
		muted: lipgloss.NewStyle(),
	}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.pass = p.pass.Foreground(lipgloss.Color("2")).Bold(true)
		p.fail = p.fail.Foreground(lipgloss.Color("1")).Bold(true)
		p.muted = p.muted.Foreground(lipgloss.Color("8"))
	}
	return p
}

func (p *reportPrinter) print(report *resolve.CheckReport) {
	for _, r := range report.Results {
		status := p.muted.Render("----")
		if r.Pass != nil {
			if *r.Pass {
				status = p.pass.Render("PASS")
			} else {
				status = p.fail.Render("FAIL")
			}
		}
		fmt.Fprintf(p.w, "%s %-20s %s", status, r.CallID, r.ChosenID())
		if r.Pass != nil && !*r.Pass {
			fmt.Fprintf(p.w, " (expected %s)", r.Expect)
		}
		if r.Error != "" {
			fmt.Fprintf(p.w, " error: %s", r.Error)
		}
		fmt.Fprintln(p.w, p.muted.Render(" "+r.Outcome))
	}
	summary := fmt.Sprintf("%d/%d passed", report.Passed, report.Total)
	if report.OK() {
		summary = p.pass.Render(summary)
	} else {
		summary = p.fail.Render(summary)
	}
	fmt.Fprintln(p.w, summary)
}

func (p *reportPrinter) error(err error) {
	fmt.Fprintln(p.w, p.fail.Render("ERROR"), err)
}
