// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"strings"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// md renders markdown blocks. Raw HTML inside markdown is dropped.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// document is the page builder's stored content: a list of typed blocks.
type document struct {
	Content []block `json:"content"`
}

type block struct {
	Type  string     `json:"type"`
	Props blockProps `json:"props"`
}

type blockProps struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Cite  string `json:"cite"`
}

// Blocks converts stored translation content into HTML fragments, one per
// block. Unknown block types are skipped. Empty content yields no blocks.
func Blocks(content json.RawMessage) ([]template.HTML, error) {
	raw := bytes.TrimSpace(content)
	if len(raw) == 0 {
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}

	out := make([]template.HTML, 0, len(doc.Content))
	for i, b := range doc.Content {
		h, err := renderBlock(b)
		if err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", i, b.Type, err)
		}
		if h == "" {
			slog.Debug("skipping content block", "index", i, "type", b.Type)
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func renderBlock(b block) (template.HTML, error) {
	p := b.Props
	switch strings.ToLower(b.Type) {
	case "heading":
		level := p.Level
		if level < 1 || level > 6 {
			level = 2
		}
		return template.HTML(fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(p.Text), level)), nil

	case "text", "paragraph":
		var sb strings.Builder
		for _, para := range strings.Split(strings.TrimSpace(p.Text), "\n\n") {
			if para = strings.TrimSpace(para); para != "" {
				sb.WriteString("<p>" + html.EscapeString(para) + "</p>")
			}
		}
		return template.HTML(sb.String()), nil

	case "markdown":
		var buf bytes.Buffer
		if err := md.Convert([]byte(p.Text), &buf); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil

	case "quote":
		h := "<blockquote><p>" + html.EscapeString(p.Text) + "</p>"
		if p.Cite != "" {
			h += "<cite>" + html.EscapeString(p.Cite) + "</cite>"
		}
		return template.HTML(h + "</blockquote>"), nil

	case "image":
		if !safeURL(p.Src) {
			return "", nil
		}
		return template.HTML(fmt.Sprintf(`<figure><img src="%s" alt="%s" loading="lazy"></figure>`,
			html.EscapeString(p.Src), html.EscapeString(p.Alt))), nil
	}
	return "", nil
}

// safeURL accepts site-relative paths and http(s) URLs only.
func safeURL(src string) bool {
	switch {
	case strings.HasPrefix(src, "//"):
		return false
	case strings.HasPrefix(src, "/"):
		return true
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return true
	}
	return false
}
