package web

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// BoardPage renders the pipeline board: one column per stage in board order,
// one card per lead.
func BoardPage(ownerID string, columns []core.Column) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Pipeline</title></head><body>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<header><h1>Pipeline</h1><p class="owner">`+templ.EscapeString(ownerID)+`</p></header><main class="board">`); err != nil {
			return err
		}
		for _, col := range columns {
			if err := boardColumn(col).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func boardColumn(col core.Column) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<section class="column" data-stage="` + templ.EscapeString(string(col.Stage)) + `">` +
			`<h2>` + templ.EscapeString(col.Label) + ` <span class="count">` + strconv.Itoa(len(col.Leads)) + `</span></h2><ul>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		for _, l := range col.Leads {
			if err := leadCard(l).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></section>`)
		return err
	})
}

func leadCard(l core.Lead) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		card := `<li class="card" draggable="true" data-lead-id="` + templ.EscapeString(l.ID) + `">` +
			`<strong>` + templ.EscapeString(l.Name) + `</strong>` +
			`<span class="email">` + templ.EscapeString(l.Email) + `</span>`
		if l.Company != nil {
			card += `<span class="company">` + templ.EscapeString(*l.Company) + `</span>`
		}
		card += `</li>`
		_, err := io.WriteString(w, card)
		return err
	})
}
