package skmarkdown

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	stripmd "github.com/writeas/go-strip-markdown"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

type externalLinkTransformer struct{}

var MD goldmark.Markdown

// Init initialise le convertisseur Markdown utilisé pour les
// descriptions de services et de projets.
func Init() {
	MD = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			emoji.Emoji,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&externalLinkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)
}

func ToHTML(markdown string) template.HTML {
	if MD == nil {
		Init()
	}
	var buf bytes.Buffer
	if err := MD.Convert([]byte(markdown), &buf); err != nil {
		log.Error().Err(err).Msg("markdown conversion failed")
		return template.HTML("<pre>" + template.HTMLEscapeString(markdown) + "</pre>")
	}
	return template.HTML(buf.String())
}

// Excerpt retourne le texte brut tronqué d'un contenu markdown,
// utilisé dans les listes publiques et les emails de notification.
func Excerpt(markdown string, maxLen int) string {
	plain := strings.TrimSpace(stripmd.Strip(markdown))
	plain = strings.Join(strings.Fields(plain), " ")

	if utf8.RuneCountInString(plain) <= maxLen {
		return plain
	}

	runes := []rune(plain)
	cut := string(runes[:maxLen])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func (t *externalLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if link, ok := n.(*ast.Link); ok {
			link.SetAttributeString("target", []byte("_blank"))
			link.SetAttributeString("rel", []byte("noopener noreferrer"))
		}

		return ast.WalkContinue, nil
	})
}
