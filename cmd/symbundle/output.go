package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"

	"github.com/grafana/symbundle/pkg/bundle"
	symctx "github.com/grafana/symbundle/pkg/context"
	"github.com/grafana/symbundle/pkg/host"
	"github.com/grafana/symbundle/pkg/match"
)

const (
	outputConsole = "console"
	outputJSON    = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type recordJSON struct {
	Literal  string       `json:"literal"`
	Symbol   string       `json:"symbol"`
	Resolved host.Address `json:"resolved"`
	Xref     host.Address `json:"xref"`
}

type renameJSON struct {
	Literal string       `json:"literal"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Address host.Address `json:"address"`
	Error   string       `json:"error,omitempty"`
}

func outputBundle(ctx context.Context, b *bundle.Bundle) error {
	out := symctx.Output(ctx)
	records := b.Records()

	if cfg.output == outputJSON {
		res := make([]recordJSON, 0, len(records))
		for _, r := range records {
			res = append(res, recordJSON{
				Literal:  r.Literal,
				Symbol:   r.Symbol,
				Resolved: r.Resolved,
				Xref:     r.Xref,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Literal", "Symbol", "Xref"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for i, r := range records {
		table.Append([]string{strconv.Itoa(i), strconv.Quote(r.Literal), r.Symbol, r.Xref.String()})
	}
	table.SetFooter([]string{"", "", b.Kind().String(), fmt.Sprintf("%d records", len(records))})
	table.Render()
	return nil
}

func outputRenames(ctx context.Context, res match.Result) error {
	out := symctx.Output(ctx)

	if cfg.output == outputJSON {
		renames := make([]renameJSON, 0, len(res.Renames))
		for _, rn := range res.Renames {
			r := renameJSON{
				Literal: rn.Literal,
				From:    rn.From,
				To:      rn.To,
				Address: rn.Address,
			}
			if rn.Err != nil {
				r.Error = rn.Err.Error()
			}
			renames = append(renames, r)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(renames)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Literal", "From", "To", "Address", "Status"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, rn := range res.Renames {
		status := ok("ok")
		if rn.Err != nil {
			status = failed(rn.Err.Error())
		}
		table.Append([]string{strconv.Quote(rn.Literal), rn.From, rn.To, rn.Address.String(), status})
	}
	table.Render()
	return nil
}
