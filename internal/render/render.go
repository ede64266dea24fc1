// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render turns published page translations into public HTML. Pages
// are rendered from an embedded html/template layout; content blocks are
// converted in Go, with markdown blocks going through goldmark.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"daftar/internal/models"
	"daftar/internal/pagetree"
)

//go:embed templates/*.html
var templateFS embed.FS

// NavItem is a menu link in the rendered page.
type NavItem struct {
	Title    string
	Href     string
	Active   bool
	Children []NavItem
}

// Alternate links the same page in another locale.
type Alternate struct {
	Locale string
	Href   string
}

// PageData holds everything the page layout prints.
type PageData struct {
	Locale     string
	Dir        string
	Title      string
	Blocks     []template.HTML
	Nav        []NavItem
	Alternates []Alternate
}

// Renderer renders public pages. It is safe for concurrent use.
type Renderer struct {
	layout *template.Template
}

// New parses the embedded page layout.
func New() (*Renderer, error) {
	layout, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{layout: layout}, nil
}

// Page holds the inputs of one public page render.
type Page struct {
	Locale      string
	Locales     []string
	Page        *models.Page
	Translation *models.PageTranslation
	Menu        []pagetree.MenuItem
}

// RenderPage renders a published translation with the site menu and links
// to the page in the other locales. It returns the complete HTML document.
func (rn *Renderer) RenderPage(p Page) ([]byte, error) {
	blocks, err := Blocks(p.Translation.Content)
	if err != nil {
		return nil, fmt.Errorf("render blocks of %s: %w", p.Page.ID, err)
	}

	title := p.Translation.Title
	if title == "" {
		title = p.Page.Title
	}

	data := PageData{
		Locale: p.Locale,
		Dir:    Direction(p.Locale),
		Title:  title,
		Blocks: blocks,
		Nav:    navItems(p.Menu, p.Locale, p.Page.FullPath),
	}
	for _, l := range p.Locales {
		if l != p.Locale {
			data.Alternates = append(data.Alternates, Alternate{Locale: l, Href: PagePath(l, p.Page.FullPath)})
		}
	}

	var buf bytes.Buffer
	if err := rn.layout.ExecuteTemplate(&buf, "page.html", data); err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

// PagePath returns the public URL path of a full path in a locale.
func PagePath(locale, fullPath string) string {
	if fullPath == "" {
		return "/" + locale
	}
	segments := strings.Split(fullPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/" + locale + "/" + strings.Join(segments, "/")
}

// Direction returns "rtl" for locales written in a right-to-left script and
// "ltr" for everything else.
func Direction(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "ltr"
	}
	script, _ := tag.Script()
	switch script.String() {
	case "Arab", "Hebr", "Syrc", "Thaa", "Nkoo", "Adlm", "Rohg":
		return "rtl"
	}
	return "ltr"
}

func navItems(menu []pagetree.MenuItem, locale, current string) []NavItem {
	if len(menu) == 0 {
		return nil
	}
	items := make([]NavItem, 0, len(menu))
	for _, m := range menu {
		items = append(items, NavItem{
			Title:    m.Title,
			Href:     PagePath(locale, m.Path),
			Active:   m.Path == current,
			Children: navItems(m.Children, locale, current),
		})
	}
	return items
}
