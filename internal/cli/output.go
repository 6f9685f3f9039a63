package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
)

func isattyTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// palette holds the colors used in text output.
type palette struct {
	key     *color.Color
	heading *color.Color
	ok      *color.Color
	warn    *color.Color
	fail    *color.Color
	dim     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		key:     color.New(color.FgCyan),
		heading: color.New(color.FgMagenta, color.Bold),
		ok:      color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.key, p.heading, p.ok, p.warn, p.fail, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// printer renders catalog records and raw responses in the selected format.
type printer struct {
	w      io.Writer
	format string
	colors palette
}

func newPrinter(w io.Writer, format string, useColor bool) *printer {
	return &printer{w: w, format: format, colors: newPalette(useColor)}
}

// encode writes v as JSON or YAML. It reports false for text output.
func (p *printer) encode(v any) (bool, error) {
	switch p.format {
	case outputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// heading prints a section title in text mode.
func (p *printer) heading(title string) {
	if p.format != outputText {
		return
	}
	fmt.Fprintln(p.w, p.colors.heading.Sprint("== "+title+" =="))
}

// item prints a single record.
func (p *printer) item(v catalog.Resource) error {
	if done, err := p.encode(v); done {
		return err
	}
	for _, f := range itemFields(v) {
		fmt.Fprintf(p.w, "%s %s\n", p.colors.key.Sprintf("%-16s", f[0]+":"), f[1])
	}
	return nil
}

// listing is a page of records ready for output.
type listing struct {
	Page    catalog.Page `json:"meta" yaml:"meta"`
	Objects any          `json:"objects" yaml:"objects"`
	header  []string
	rows    [][]string
}

func productListing(items []catalog.Product, page catalog.Page) listing {
	l := listing{Page: page, Objects: items, header: []string{"ID", "TITLE", "CODE", "SIZE", "PROOF", "ON SALE"}}
	for _, it := range items {
		l.rows = append(l.rows, []string{strconv.Itoa(it.ID), it.Title, it.Code, it.Size, formatFloat(it.Proof), strconv.FormatBool(it.OnSale)})
	}
	return l
}

func priceListing(items []catalog.Price, page catalog.Page) listing {
	l := listing{Page: page, Objects: items, header: []string{"ID", "PRODUCT", "AMOUNT", "MODIFIED"}}
	for _, it := range items {
		l.rows = append(l.rows, []string{strconv.Itoa(it.ID), strconv.Itoa(it.ProductID()), formatAmount(it.Amount), formatTime(it.ModifiedAt)})
	}
	return l
}

func storeListing(items []catalog.Store, page catalog.Page) listing {
	l := listing{Page: page, Objects: items, header: []string{"ID", "KEY", "NAME", "COUNTY", "PHONE"}}
	for _, it := range items {
		l.rows = append(l.rows, []string{strconv.Itoa(it.ID), strconv.Itoa(it.Key), it.Name, it.County, it.PhoneNumber})
	}
	return l
}

// list prints a page of records with a paging footer in text mode.
func (p *printer) list(l listing) error {
	if done, err := p.encode(l); done {
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(l.header, "\t"))
	for _, row := range l.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	footer := fmt.Sprintf("%d of %d (offset %d)", len(l.rows), l.Page.TotalCount, l.Page.Offset)
	if l.Page.HasNext() {
		footer += ", next: " + l.Page.Next
	}
	fmt.Fprintln(p.w, p.colors.dim.Sprint(footer))
	return nil
}

// rawResponse is the structured form of a response for json/yaml output.
type rawResponse struct {
	URI             string      `json:"uri" yaml:"uri"`
	StatusCode      int         `json:"status_code" yaml:"status_code"`
	ProtocolVersion float64     `json:"protocol_version" yaml:"protocol_version"`
	ContentType     string      `json:"content_type" yaml:"content_type"`
	Charset         string      `json:"charset" yaml:"charset"`
	Headers         [][2]string `json:"headers" yaml:"headers"`
	Body            any         `json:"body" yaml:"body"`
	Error           string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// response dumps a raw catalog response. body overrides the response body
// when non-nil.
func (p *printer) response(resp *httpclient.Response, body any) error {
	if body == nil {
		body = resp.ContentBody()
	}

	if p.format != outputText {
		out := rawResponse{
			URI:             resp.URI(),
			StatusCode:      resp.StatusCode(),
			ProtocolVersion: resp.ProtocolVersion(),
			ContentType:     resp.ContentType(),
			Charset:         resp.Charset(),
			Body:            body,
		}
		for k, v := range resp.Headers().Iterate() {
			out.Headers = append(out.Headers, [2]string{k, v})
		}
		if err := resp.Err(); err != nil {
			out.Error = err.Error()
		}
		_, err := p.encode(out)
		return err
	}

	fmt.Fprintln(p.w, p.statusLine(resp))
	for k, v := range resp.Headers().Iterate() {
		fmt.Fprintf(p.w, "%s %s\n", p.colors.key.Sprint(k+":"), v)
	}
	fmt.Fprintln(p.w)

	switch b := body.(type) {
	case string:
		fmt.Fprintln(p.w, b)
	default:
		raw, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return fmt.Errorf("render body: %w", err)
		}
		fmt.Fprintln(p.w, string(raw))
	}
	return nil
}

func (p *printer) statusLine(resp *httpclient.Response) string {
	if resp.IsTransportFailure() {
		return p.colors.fail.Sprintf("transport failure (%d) %s", resp.StatusCode(), resp.URI())
	}

	line := fmt.Sprintf("HTTP/%.1f %d %s", resp.ProtocolVersion(), resp.StatusCode(), resp.URI())
	switch {
	case resp.IsSuccess():
		return p.colors.ok.Sprint(line)
	case resp.IsRedirect():
		return p.colors.warn.Sprint(line)
	default:
		return p.colors.fail.Sprint(line)
	}
}

func itemFields(v catalog.Resource) [][2]string {
	switch r := v.(type) {
	case catalog.Product:
		return [][2]string{
			{"id", strconv.Itoa(r.ID)},
			{"title", r.Title},
			{"code", r.Code},
			{"slug", r.Slug},
			{"size", r.Size},
			{"proof", formatFloat(r.Proof)},
			{"age", formatFloat(r.Age)},
			{"bottles_per_case", strconv.Itoa(r.BottlesPerCase)},
			{"on_sale", strconv.FormatBool(r.OnSale)},
			{"description", r.Description},
			{"created_at", formatTime(r.CreatedAt)},
			{"modified_at", formatTime(r.ModifiedAt)},
			{"resource_uri", r.URI},
		}
	case catalog.Price:
		return [][2]string{
			{"id", strconv.Itoa(r.ID)},
			{"amount", formatAmount(r.Amount)},
			{"product", r.ProductURI},
			{"created_at", formatTime(r.CreatedAt)},
			{"modified_at", formatTime(r.ModifiedAt)},
			{"resource_uri", r.URI},
		}
	case catalog.Store:
		return [][2]string{
			{"id", strconv.Itoa(r.ID)},
			{"key", strconv.Itoa(r.Key)},
			{"name", r.Name},
			{"address", r.Address},
			{"address_raw", r.RawAddress},
			{"county", r.County},
			{"phone", r.PhoneNumber},
			{"hours_raw", r.RawHours},
			{"latitude", formatFloat(r.Latitude)},
			{"longitude", formatFloat(r.Longitude)},
			{"resource_uri", r.URI},
		}
	}
	return [][2]string{{"resource_uri", v.ResourceURI()}}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// prettyJSON indents raw JSON text, returning it unchanged when it does not parse.
func prettyJSON(raw string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
