// =============================================================================
// report.go - HTML report composer
// =============================================================================
//
// Pure rendering: articles and issuer blocks in, one self-contained HTML
// artifact out. The issuer section is spliced in before the closing wrapper
// tag; when the base artifact is missing that marker the section is
// concatenated after it instead, so a malformed base never loses data.
//
// =============================================================================
package harvester

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const (
	summaryMaxChars = 300
	closingWrapper  = "</body></html>"

	emptyBodyPlaceholder = "Haz clic en el enlace para leer la noticia completa."
	noArticlesMessage    = "No se han encontrado noticias relevantes con las palabras clave hoy."
	noPositionsMessage   = "Sin posiciones vivas publicadas."
)

// ComposeReport renders the merged report artifact. Articles render in input
// order; issuer blocks render as a trailing section.
func ComposeReport(title string, articles []Article, blocks []IssuerBlock, loc *time.Location) string {
	base := composeArticles(title, articles, loc)
	return spliceIssuerSection(base, composeIssuerSection(blocks))
}

// spliceIssuerSection inserts the issuer section before the closing wrapper
// tag. When the base artifact is missing the marker the section is appended
// after it, so a malformed base never loses the issuer data.
func spliceIssuerSection(base, section string) string {
	if section == "" {
		return base
	}
	if strings.Contains(base, closingWrapper) {
		return strings.Replace(base, closingWrapper, section+"\n"+closingWrapper, 1)
	}
	return base + section
}

// Subject builds the delivery subject line from the generation date and the
// active keyword filter, if any.
func Subject(title string, now time.Time, keywords []string) string {
	subject := fmt.Sprintf("%s (%s)", title, now.Format("2006-01-02"))
	if len(keywords) > 0 {
		subject += " — filtro: " + strings.Join(keywords, ", ")
	}
	return subject
}

func composeArticles(title string, articles []Article, loc *time.Location) string {
	now := time.Now().In(loc).Format("2006-01-02 15:04")

	var blocks strings.Builder
	for _, a := range articles {
		published := "Sin fecha"
		if a.Published != nil {
			published = a.Published.Format("2006-01-02 15:04")
		}

		byline := ""
		if a.Author != "" {
			byline = " — Por: " + html.EscapeString(a.Author)
		}

		blocks.WriteString(fmt.Sprintf(`
    <div style="margin-bottom: 28px; padding: 15px; border-left: 4px solid #004a99; background-color: #f5f7fa; border-radius: 0 5px 5px 0;">
      <div style="font-size: 11px; font-weight: bold; color: #e62e00; text-transform: uppercase; margin-bottom: 5px;">%s</div>
      <h3 style="margin: 0 0 8px 0; line-height: 1.3;">
        <a href="%s" style="color: #004a99; text-decoration: none;">%s</a>
      </h3>
      <div style="font-size: 12px; color: #777; margin-bottom: 10px;">%s%s</div>
      <p style="font-size: 14px; color: #333; line-height: 1.5; margin: 0;">%s</p>
      <div style="margin-top: 10px;">
        <a href="%s" style="font-size: 12px; color: #004a99; font-weight: bold; text-decoration: underline;">Leer m&aacute;s &rarr;</a>
      </div>
    </div>`,
			html.EscapeString(a.Source),
			a.URL,
			html.EscapeString(a.Title),
			published, byline,
			html.EscapeString(summarize(a.Content)),
			a.URL,
		))
	}

	body := blocks.String()
	if body == "" {
		body = `<p style="text-align:center; color:#666;">` + noArticlesMessage + `</p>`
	}

	return fmt.Sprintf(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; max-width: 700px; margin: 20px auto; color: #333;">
  <div style="background-color: #004a99; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1 style="color: white; margin: 0; font-size: 22px;">%s</h1>
    <p style="color: #d1d1d1; font-size: 12px; margin: 5px 0 0 0;">Generado el %s (%s)</p>
  </div>
  <div style="padding: 20px; border: 1px solid #ddd; border-top: none; border-radius: 0 0 8px 8px;">%s
  </div>
%s`,
		html.EscapeString(title), now, loc.String(), body, closingWrapper)
}

// summarize keeps the first newline-delimited segment of the body, capped at
// 300 characters. An empty body becomes a click-through placeholder.
func summarize(content string) string {
	content = strings.TrimSpace(content)
	summary, _, _ := strings.Cut(content, "\n")
	if len([]rune(summary)) > summaryMaxChars {
		summary = string([]rune(summary)[:summaryMaxChars]) + "..."
	}
	if summary == "" {
		return emptyBodyPlaceholder
	}
	return summary
}

func composeIssuerSection(blocks []IssuerBlock) string {
	if len(blocks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<hr style="margin:32px 0;">` + "\n")
	sb.WriteString(`<h2 style="margin-bottom:8px;">Posiciones cortas CNMV (&ge; 0,5%)</h2>` + "\n")

	for _, b := range blocks {
		heading := b.NIF
		if issuer := strings.TrimSpace(b.Issuer); issuer != "" {
			heading = fmt.Sprintf("%s (%s)", issuer, b.NIF)
		}
		sb.WriteString(fmt.Sprintf(`<h3 style="margin:16px 0 4px 0;">%s</h3>`+"\n", html.EscapeString(heading)))
		sb.WriteString(fmt.Sprintf(`<div style="font-size:12px;color:#666;margin-bottom:4px;">Fuente: <a href="%s">%s</a></div>`+"\n", b.URL, b.URL))

		if len(b.Rows) == 0 {
			sb.WriteString(`<p style="font-size:13px;color:#666;">` + noPositionsMessage + `</p>` + "\n")
			continue
		}

		sb.WriteString(`<table style="border-collapse:collapse;font-size:13px;margin-bottom:12px;"><thead><tr>` +
			`<th style="border-bottom:1px solid #ccc;padding:4px 8px;text-align:left;">Titular</th>` +
			`<th style="border-bottom:1px solid #ccc;padding:4px 8px;text-align:right;">% capital</th>` +
			`<th style="border-bottom:1px solid #ccc;padding:4px 8px;text-align:left;">Fecha posici&oacute;n</th>` +
			`</tr></thead><tbody>` + "\n")
		for _, r := range b.Rows {
			sb.WriteString(fmt.Sprintf(`<tr><td style="padding:4px 8px;">%s</td>`+
				`<td style="padding:4px 8px;text-align:right;">%s</td>`+
				`<td style="padding:4px 8px;">%s</td></tr>`+"\n",
				html.EscapeString(r.Holder), r.NetShortPct.StringFixed(3), html.EscapeString(r.Date)))
		}
		sb.WriteString("</tbody></table>\n")
	}

	return sb.String()
}
