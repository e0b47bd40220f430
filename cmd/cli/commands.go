package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func cmdStatus(ctx context.Context, w io.Writer, docs *repo.Documents) error {
	latest, err := docs.LoadLatest(ctx)
	if err != nil {
		return err
	}
	st, err := docs.LoadState(ctx)
	if err != nil {
		return err
	}
	if len(latest.Results) == 0 {
		fmt.Fprintln(w, gray("no results yet"))
		return nil
	}

	fmt.Fprintf(w, "%s %s\n\n", bold("generated"), latest.GeneratedAt.Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tHTTP\tLATENCY\tSTREAK\tALERT\tURL")
	for _, res := range latest.Results {
		ts := st.Get(res.URL)
		state := green("UP")
		if !res.OK {
			state = red("DOWN")
		}
		code := "-"
		if res.StatusCode != nil {
			code = fmt.Sprint(*res.StatusCode)
		}
		alert := "-"
		if ts.OpenAlert != nil {
			alert = yellow(string(*ts.OpenAlert))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%d\t%s\t%s\n",
			res.Name, state, code, res.LatencyMS, ts.Streak, alert, res.URL)
		if res.Error != nil {
			fmt.Fprintf(tw, "\t%s\t\t\t\t\t\n", gray(*res.Error))
		}
	}
	return tw.Flush()
}

func cmdAlerts(ctx context.Context, w io.Writer, docs *repo.Documents) error {
	alerts, err := docs.LoadAlerts(ctx)
	if err != nil {
		return err
	}
	recs, err := docs.LoadRecoveries(ctx)
	if err != nil {
		return err
	}

	if len(alerts.Alerts) == 0 && len(recs.Recoveries) == 0 {
		fmt.Fprintln(w, gray("no alerts or recoveries in the last run"))
		return nil
	}
	for _, a := range alerts.Alerts {
		ref := string(a.AlertRef)
		if ref == "" {
			ref = "untracked"
		}
		fmt.Fprintf(w, "%s %s (%s) failed %d times, ref %s\n", red("ALERT"), a.Name, a.URL, a.Streak, ref)
		if a.LastError != nil {
			fmt.Fprintf(w, "      %s\n", gray(*a.LastError))
		} else if a.LastStatusCode != nil {
			fmt.Fprintf(w, "      %s\n", gray(fmt.Sprintf("HTTP %d", *a.LastStatusCode)))
		}
	}
	for _, r := range recs.Recoveries {
		fmt.Fprintf(w, "%s %s (%s) closed ref %s\n", green("RECOVERED"), r.Name, r.URL, string(r.IssueReference))
	}
	return nil
}

// cmdLink swaps the generated reference of an open alert for an external
// one, so the recovery event carries the ticket id.
func cmdLink(ctx context.Context, w io.Writer, docs *repo.Documents, url, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("empty reference")
	}
	st, err := docs.LoadState(ctx)
	if err != nil {
		return err
	}
	cur := st.Get(url)
	if !cur.HasOpenAlert() {
		return fmt.Errorf("no open alert for %s", url)
	}
	old := *cur.OpenAlert
	nr := domain.AlertRef(ref)
	cur.OpenAlert = &nr
	st.Set(url, cur)
	if err := docs.SaveState(ctx, st); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s: %s -> %s\n", green("✔"), url, old, nr)
	return nil
}
